// Package crypto verifies trader signatures on trade requests. Traders are
// identified by Ethereum-style addresses and sign a canonical digest of the
// request with secp256k1.
package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/boxmeout/poolengine/internal/domain"
)

// SignatureLen is the expected r||s||v signature length.
const SignatureLen = 65

// TradeDigest computes the canonical digest a trader signs for one trade
// request. Amount is the decimal string form so the digest matches what the
// HTTP layer received, and nonce prevents replay of an identical request.
func TradeDigest(marketID domain.MarketID, side domain.TradeSide, outcome domain.Outcome, amount string, nonce uint64) []byte {
	msg := fmt.Sprintf("poolengine/trade/v1\n%s\n%s\n%s\n%s\n%d",
		marketID.String(), string(side), outcome.String(), amount, nonce)
	return ethcrypto.Keccak256([]byte(msg))
}

// VerifyTrader recovers the signer of digest from a 65-byte signature and
// checks it against the claimed trader address. Returns
// domain.ErrUnauthorized on any mismatch or malformed input.
func VerifyTrader(trader string, digest, sig []byte) error {
	if len(sig) != SignatureLen {
		return fmt.Errorf("%w: signature has %d bytes", domain.ErrUnauthorized, len(sig))
	}

	// Normalize the recovery id; wallets emit 27/28 where go-ethereum
	// expects 0/1.
	s := make([]byte, SignatureLen)
	copy(s, sig)
	if s[64] >= 27 {
		s[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(digest, s)
	if err != nil {
		return fmt.Errorf("%w: recover signer: %v", domain.ErrUnauthorized, err)
	}

	recovered := ethcrypto.PubkeyToAddress(*pub).Hex()
	if !strings.EqualFold(recovered, trader) {
		return domain.ErrUnauthorized
	}
	return nil
}

// ParseSignature decodes a hex signature with or without a 0x prefix.
func ParseSignature(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	sig, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode signature: %v", domain.ErrUnauthorized, err)
	}
	return sig, nil
}

// SignDigest signs a digest with the given key, producing the r||s||v form
// VerifyTrader accepts. Used by tests and local tooling.
func SignDigest(digest []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	return ethcrypto.Sign(digest, key)
}

// AddressOf returns the checksummed address for a private key.
func AddressOf(key *ecdsa.PrivateKey) string {
	return ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
}
