package domain

import (
	"fmt"
	"strings"
)

// CurrencyCode is a 4-byte packed asset code, right-padded with NULs.
// The string round trip is exact for codes of 1 to 4 printable characters.
type CurrencyCode [4]byte

// NewCurrencyCode packs a 1-4 character asset code.
func NewCurrencyCode(code string) (CurrencyCode, error) {
	var c CurrencyCode

	if len(code) == 0 || len(code) > 4 {
		return c, fmt.Errorf("invalid currency code length %d", len(code))
	}

	for i := range len(code) {
		if code[i] < 0x21 || code[i] > 0x7e {
			return c, fmt.Errorf("invalid character %#x in currency code", code[i])
		}
	}

	copy(c[:], code)
	return c, nil
}

// String unpacks the code, dropping the NUL padding.
func (c CurrencyCode) String() string {
	return strings.TrimRight(string(c[:]), "\x00")
}

// AssetType discriminates the asset variants.
type AssetType uint8

const (
	// AssetTypeNative is the network's native asset. It is never issued
	// and never appears in a trust line.
	AssetTypeNative AssetType = iota
	// AssetTypeAlphanum4 is a third-party-issued asset identified by a
	// packed 4-character code and the issuing account.
	AssetTypeAlphanum4
)

// Asset identifies a ledger asset: either the native asset or a credit
// asset issued by a specific account.
type Asset struct {
	Type   AssetType
	Code   CurrencyCode
	Issuer AccountID
}

// NativeAsset returns the native asset.
func NativeAsset() Asset {
	return Asset{Type: AssetTypeNative}
}

// NewCreditAsset returns an issued asset for the given code and issuer.
func NewCreditAsset(code CurrencyCode, issuer AccountID) Asset {
	return Asset{Type: AssetTypeAlphanum4, Code: code, Issuer: issuer}
}

// IsNative reports whether the asset is the network's native asset.
func (a Asset) IsNative() bool {
	return a.Type == AssetTypeNative
}

// String renders the asset as "CODE:ISSUER", or "native".
func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return fmt.Sprintf("%s:%s", a.Code, a.Issuer)
}
