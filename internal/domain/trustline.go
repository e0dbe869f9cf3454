package domain

import (
	"fmt"
	"math"
)

// LineKey is the globally unique identity of a trust line:
// (holder, issuer, currency), with issuer and currency carried by the asset.
type LineKey struct {
	Holder AccountID
	Asset  Asset
}

// IsIssuer reports whether the key names the issuer's own line for its
// asset. No row exists in storage for such a key; it is served by the
// IssuerLine pseudo-entity instead.
func (k LineKey) IsIssuer() bool {
	return k.Holder == k.Asset.Issuer
}

// String renders the key as "HOLDER/CODE:ISSUER".
func (k LineKey) String() string {
	return fmt.Sprintf("%s/%s", k.Holder, k.Asset)
}

// Line is the capability set shared by the two trust-line variants: the
// storage-backed holder line and the issuer's unbounded pseudo-line.
type Line interface {
	// Key returns the line's identity triple.
	Key() LineKey
	// IsAuthorized reports whether the issuer permits the holder to
	// transact the asset.
	IsAuthorized() bool
	// AddBalance applies a signed balance change, reporting whether it
	// was accepted. A rejected change leaves the line untouched.
	AddBalance(delta int64) bool
	// MaxAmountReceive returns the remaining receiving capacity.
	MaxAmountReceive() int64
}

// HolderLine is a storage-backed trust line: a holder's bounded, revocable
// exposure to an issued asset.
type HolderLine struct {
	Holder     AccountID
	Asset      Asset
	Limit      int64
	Balance    int64
	Authorized bool
}

// NewHolderLine creates a fresh trust line with a zero balance, as
// established by a trust operation.
func NewHolderLine(holder AccountID, asset Asset, limit int64, authorized bool) *HolderLine {
	return &HolderLine{
		Holder:     holder,
		Asset:      asset,
		Limit:      limit,
		Authorized: authorized,
	}
}

// Key returns the line's identity triple.
func (l *HolderLine) Key() LineKey {
	return LineKey{Holder: l.Holder, Asset: l.Asset}
}

// Validate checks the entity invariants: the asset is non-native, the
// balance is non-negative, and the balance does not exceed the limit.
// It gates every persistence operation; a failure here is a caller bug,
// not a normal runtime outcome.
func (l *HolderLine) Validate() error {
	if l.Asset.IsNative() {
		return &ValidationError{Reason: "native asset has no trust line"}
	}
	if l.Balance < 0 {
		return &ValidationError{Reason: fmt.Sprintf("negative balance %d", l.Balance)}
	}
	if l.Balance > l.Limit {
		return &ValidationError{Reason: fmt.Sprintf("balance %d exceeds limit %d", l.Balance, l.Limit)}
	}
	return nil
}

// IsAuthorized reports the authorization flag.
func (l *HolderLine) IsAuthorized() bool {
	return l.Authorized
}

// SetAuthorized sets or clears the authorization flag.
func (l *HolderLine) SetAuthorized(authorized bool) {
	l.Authorized = authorized
}

// AddBalance applies delta to the balance if the result stays within
// [0, limit] and the line is authorized. A zero delta always succeeds and
// changes nothing, even on an unauthorized line.
func (l *HolderLine) AddBalance(delta int64) bool {
	if delta == 0 {
		return true
	}
	if !l.Authorized {
		return false
	}
	// Balance is within [0, Limit] here, so neither bound check can
	// overflow int64.
	if delta > l.Limit-l.Balance {
		return false
	}
	if delta < -l.Balance {
		return false
	}
	l.Balance += delta
	return true
}

// MaxAmountReceive returns the remaining headroom under the limit, or 0
// when the line is unauthorized.
func (l *HolderLine) MaxAmountReceive() int64 {
	if !l.Authorized {
		return 0
	}
	return l.Limit - l.Balance
}

// IssuerLine is the issuer's own pseudo trust line for an asset it issues.
// It models unlimited capacity to hold and emit the asset: always
// authorized, never bounded, never persisted.
type IssuerLine struct {
	Asset Asset
}

// NewIssuerLine synthesizes the pseudo-line for an issued asset.
func NewIssuerLine(asset Asset) IssuerLine {
	return IssuerLine{Asset: asset}
}

// Key returns the key with the issuer as its own holder.
func (l IssuerLine) Key() LineKey {
	return LineKey{Holder: l.Asset.Issuer, Asset: l.Asset}
}

// IsAuthorized always reports true for the issuer.
func (IssuerLine) IsAuthorized() bool {
	return true
}

// AddBalance always succeeds; the issuer's balance is not tracked.
func (IssuerLine) AddBalance(int64) bool {
	return true
}

// MaxAmountReceive returns the maximum representable amount.
func (IssuerLine) MaxAmountReceive() int64 {
	return math.MaxInt64
}
