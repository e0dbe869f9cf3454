package domain

import (
	"encoding/base32"
	"fmt"
)

// AccountID is the raw 32-byte account identifier used throughout the ledger.
// Its canonical string form is a fixed-width check-encoded address; the raw
// bytes never appear in storage or on the wire.
type AccountID [32]byte

const (
	// accountIDVersion is the version byte prepended to the raw payload
	// before check-encoding. It yields addresses starting with "G".
	accountIDVersion byte = 6 << 3

	// EncodedAccountIDLen is the length of the canonical string form:
	// base32(version byte + 32-byte payload + 2-byte checksum), unpadded.
	EncodedAccountIDLen = 56
)

var addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// String returns the canonical check-encoded address.
func (id AccountID) String() string {
	raw := make([]byte, 0, 35)
	raw = append(raw, accountIDVersion)
	raw = append(raw, id[:]...)
	checksum := crc16(raw)
	raw = append(raw, byte(checksum), byte(checksum>>8))
	return addressEncoding.EncodeToString(raw)
}

// ParseAccountID decodes a canonical address back into its raw form.
// The round trip ParseAccountID(id.String()) is exact.
func ParseAccountID(address string) (AccountID, error) {
	var id AccountID

	if len(address) != EncodedAccountIDLen {
		return id, fmt.Errorf("invalid address length %d, want %d", len(address), EncodedAccountIDLen)
	}

	raw, err := addressEncoding.DecodeString(address)
	if err != nil {
		return id, fmt.Errorf("failed to decode address: %w", err)
	}

	if raw[0] != accountIDVersion {
		return id, fmt.Errorf("invalid address version byte %#x", raw[0])
	}

	payload := raw[:len(raw)-2]
	want := uint16(raw[len(raw)-2]) | uint16(raw[len(raw)-1])<<8
	if crc16(payload) != want {
		return id, fmt.Errorf("address checksum mismatch")
	}

	copy(id[:], raw[1:len(raw)-2])
	return id, nil
}

// crc16 computes the CRC16-XModem checksum (polynomial 0x1021, initial 0)
// over the given bytes.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
