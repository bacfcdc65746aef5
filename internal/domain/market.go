package domain

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// MarketIDLen is the byte length of a market identifier.
const MarketIDLen = 32

// MarketID is the fixed-size opaque identifier of a binary-outcome market.
// Each market owns exactly one liquidity pool.
type MarketID [MarketIDLen]byte

// ParseMarketID decodes a 64-character hex string into a MarketID.
func ParseMarketID(s string) (MarketID, error) {
	var id MarketID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return MarketID{}, fmt.Errorf("domain: parse market id %q: %w", s, err)
	}
	if len(raw) != MarketIDLen {
		return MarketID{}, fmt.Errorf("domain: market id must be %d bytes, got %d", MarketIDLen, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// DeriveMarketID computes a deterministic market identifier from a market
// question string using SHA3-256, so independent callers agree on the ID
// without coordination.
func DeriveMarketID(question string) MarketID {
	return MarketID(sha3.Sum256([]byte(question)))
}

// String returns the lowercase hex encoding of the identifier.
func (id MarketID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the identifier as a byte slice, for storage drivers.
func (id MarketID) Bytes() []byte {
	b := make([]byte, MarketIDLen)
	copy(b, id[:])
	return b
}

// MarshalText implements encoding.TextMarshaler so MarketID renders as hex
// in JSON payloads.
func (id MarketID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *MarketID) UnmarshalText(text []byte) error {
	parsed, err := ParseMarketID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Outcome identifies one side of a binary market: 0 = NO, 1 = YES.
type Outcome uint8

const (
	OutcomeNo  Outcome = 0
	OutcomeYes Outcome = 1
)

// Validate returns ErrInvalidOutcome for any value outside {0, 1}.
func (o Outcome) Validate() error {
	if o > OutcomeYes {
		return ErrInvalidOutcome
	}
	return nil
}

// String returns "YES" or "NO" for valid outcomes.
func (o Outcome) String() string {
	switch o {
	case OutcomeNo:
		return "NO"
	case OutcomeYes:
		return "YES"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}
