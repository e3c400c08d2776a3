package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer is the wallet capability used for the L1 handshake and order
// signing. The signature is over a 32-byte EIP-712 digest, so the key can
// live anywhere: in process, on hardware, or behind a remote service.
// Implementations must be safe for concurrent use.
type Signer interface {
	// Address returns the signing address.
	Address() common.Address

	// SignHash signs the given digest and returns a 65-byte
	// [R || S || V] signature with V in {27, 28}.
	SignHash(ctx context.Context, hash common.Hash) ([]byte, error)
}

// LocalSigner signs with an in-process secp256k1 private key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner creates a LocalSigner from a hex-encoded private key,
// with or without the 0x prefix.
func NewLocalSigner(privateKeyHex string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewLocalSignerFromKey(key), nil
}

// NewLocalSignerFromKey wraps an existing ECDSA key.
func NewLocalSignerFromKey(key *ecdsa.PrivateKey) *LocalSigner {
	publicKey, _ := key.Public().(*ecdsa.PublicKey)
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKey),
	}
}

// Address returns the address derived from the private key.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// SignHash signs the digest with the local key. Signing is deterministic
// (RFC 6979 nonces), so the same digest always yields the same signature.
func (s *LocalSigner) SignHash(_ context.Context, hash common.Hash) ([]byte, error) {
	signature, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	// Recovery ID to Ethereum convention
	signature[64] += 27

	return signature, nil
}
