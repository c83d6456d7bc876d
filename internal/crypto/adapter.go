// Package crypto adapts Ed25519 and Ethereum-style ECDSA signing behind a
// single Sign/Verify surface, discriminating algorithm by public-key
// length: 32 bytes selects Ed25519, 20 bytes selects an Ethereum address
// (the "public key" stored on nodes and certs for that scheme is actually
// the derived address; the full secp256k1 public key is recovered from the
// signature at verify time).
package crypto

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Scheme identifies a supported signing algorithm.
type Scheme int

const (
	SchemeUnknown Scheme = iota
	SchemeEd25519
	SchemeEthereum
)

// Key-length discriminators, per spec: 32 bytes of public key selects
// Ed25519, 20 bytes (an Ethereum address) selects the Ethereum scheme.
const (
	Ed25519PublicKeyLength = ed25519.PublicKeySize // 32
	EthereumAddressLength  = common.AddressLength  // 20

	Ed25519SignatureLength = ed25519.SignatureSize // 64
	EthereumSignatureLength = 65                   // r(32) || s(32) || v(1)

	// MaxSignatureLength bounds any signature this adapter ever produces.
	MaxSignatureLength = EthereumSignatureLength
)

var (
	// ErrCryptoSchemaUnknown is returned when a public key's length does
	// not match any supported scheme.
	ErrCryptoSchemaUnknown = errors.New("crypto: unknown signature schema for public key length")
	ErrInvalidSignature    = errors.New("crypto: invalid signature encoding")
)

// SchemeOf discriminates the signing algorithm by public-key length.
func SchemeOf(publicKey []byte) Scheme {
	switch len(publicKey) {
	case Ed25519PublicKeyLength:
		return SchemeEd25519
	case EthereumAddressLength:
		return SchemeEthereum
	default:
		return SchemeUnknown
	}
}

// SignatureLength returns the expected signature length for publicKey's
// scheme, or an error if the key length is not recognized.
func SignatureLength(publicKey []byte) (int, error) {
	switch SchemeOf(publicKey) {
	case SchemeEd25519:
		return Ed25519SignatureLength, nil
	case SchemeEthereum:
		return EthereumSignatureLength, nil
	default:
		return 0, fmt.Errorf("%w: length=%d", ErrCryptoSchemaUnknown, len(publicKey))
	}
}

// Signer is satisfied by anything that can produce a detached signature
// for a given public key — a local Session, or a remote custody backend
// such as kmssigner.Client. The certificate and node layers depend only on
// this interface, never on a concrete key-storage mechanism.
type Signer interface {
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)
}

// KeyPair is a loaded Ed25519 or Ethereum secp256k1 private key, ready to
// sign. Ed25519 keys carry the raw 64-byte private key; Ethereum keys carry
// the 32-byte secp256k1 scalar.
type KeyPair struct {
	Scheme     Scheme
	PublicKey  []byte // 32B Ed25519 public key, or 20B Ethereum address
	privateKey []byte
}

// NewEd25519KeyPair wraps an existing Ed25519 private key (64 bytes,
// seed||publicKey per the standard library's convention).
func NewEd25519KeyPair(priv ed25519.PrivateKey) *KeyPair {
	pub := priv.Public().(ed25519.PublicKey)
	return &KeyPair{Scheme: SchemeEd25519, PublicKey: append([]byte(nil), pub...), privateKey: append([]byte(nil), priv...)}
}

// NewEthereumKeyPair wraps a 32-byte secp256k1 private key scalar, deriving
// the Ethereum address as the public key.
func NewEthereumKeyPair(privScalar []byte) (*KeyPair, error) {
	priv, err := ethcrypto.ToECDSA(privScalar)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid ethereum private key: %w", err)
	}
	addr := ethcrypto.PubkeyToAddress(priv.PublicKey)
	return &KeyPair{Scheme: SchemeEthereum, PublicKey: addr.Bytes(), privateKey: append([]byte(nil), privScalar...)}, nil
}

// Sign produces a detached signature over message. For Ed25519 this is the
// raw 64-byte detached signature. For Ethereum this prefixes message with
// "\x19Ethereum Signed Message:\n<len>", hashes with keccak-256, and
// produces a 65-byte (r||s||v) ECDSA signature with v normalized to 27/28.
func (k *KeyPair) Sign(message []byte) ([]byte, error) {
	switch k.Scheme {
	case SchemeEd25519:
		return ed25519.Sign(ed25519.PrivateKey(k.privateKey), message), nil
	case SchemeEthereum:
		digest := EthereumSignedMessageHash(message)
		priv, err := ethcrypto.ToECDSA(k.privateKey)
		if err != nil {
			return nil, fmt.Errorf("crypto: invalid ethereum private key: %w", err)
		}
		sig, err := ethcrypto.Sign(digest, priv)
		if err != nil {
			return nil, fmt.Errorf("crypto: ecdsa sign: %w", err)
		}
		sig[64] += 27
		return sig, nil
	default:
		return nil, ErrCryptoSchemaUnknown
	}
}

// EthereumSignedMessageHash computes keccak256("\x19Ethereum Signed
// Message:\n" || len(message) || message), the digest Ethereum wallets
// sign over for personal messages.
func EthereumSignedMessageHash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return ethcrypto.Keccak256([]byte(prefix), message)
}

// Verify checks signature over message against publicKey, dispatching by
// SchemeOf(publicKey). For Ethereum, the address is recovered from the
// signature and compared byte-for-byte against publicKey.
func Verify(publicKey, message, signature []byte) (bool, error) {
	switch SchemeOf(publicKey) {
	case SchemeEd25519:
		if len(signature) != Ed25519SignatureLength {
			return false, fmt.Errorf("%w: ed25519 signature length %d", ErrInvalidSignature, len(signature))
		}
		return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature), nil
	case SchemeEthereum:
		if len(signature) != EthereumSignatureLength {
			return false, fmt.Errorf("%w: ethereum signature length %d", ErrInvalidSignature, len(signature))
		}
		digest := EthereumSignedMessageHash(message)
		sig := append([]byte(nil), signature...)
		if sig[64] >= 27 {
			sig[64] -= 27
		}
		recoveredPub, err := ethcrypto.SigToPub(digest, sig)
		if err != nil {
			return false, nil
		}
		addr := ethcrypto.PubkeyToAddress(*recoveredPub)
		return addr.Bytes() != nil && common.BytesToAddress(publicKey) == addr, nil
	default:
		return false, fmt.Errorf("%w: length=%d", ErrCryptoSchemaUnknown, len(publicKey))
	}
}
