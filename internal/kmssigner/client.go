// Package kmssigner implements the "offloaded signing" custody backend
// named in the node/certificate lifecycle (a signed node/cert "may be
// offloaded"): the raw private key scalar is stored only as a KMS-wrapped
// ciphertext blob; signing still happens locally against the key decrypted
// on demand, the same division of labor the teacher's internal/kms.Client
// used for decrypting session keys ahead of local EIP-712 signing.
package kmssigner

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	oc "github.com/odingraph/odingraph/internal/crypto"
)

// Client wraps the AWS KMS SDK to decrypt an envelope-encrypted signing key
// on demand. It never asks KMS to perform the ECDSA/Ed25519 operation
// itself — only the symmetric Decrypt call is used, matching the teacher's
// kms.Client surface exactly.
type Client struct {
	kms *kms.Client
}

// New creates a Client. If localStackEndpoint is non-empty, the client
// targets that endpoint with dummy credentials (local development,
// mirroring the teacher's LocalStack support); otherwise it uses the AWS
// default credential chain.
func New(ctx context.Context, region, localStackEndpoint string) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(region))

	if localStackEndpoint != "" {
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("kmssigner: load aws config: %w", err)
	}

	var kmsOpts []func(*kms.Options)
	if localStackEndpoint != "" {
		kmsOpts = append(kmsOpts, func(o *kms.Options) {
			o.BaseEndpoint = aws.String(localStackEndpoint)
		})
	}

	return &Client{kms: kms.NewFromConfig(cfg, kmsOpts...)}, nil
}

// Decrypt sends ciphertext to KMS and returns the decrypted plaintext key
// material. The caller is responsible for sealing the returned bytes
// immediately (e.g. into a crypto.Session enclave).
func (c *Client) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	out, err := c.kms.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: ciphertext})
	if err != nil {
		return nil, fmt.Errorf("kmssigner: decrypt: %w", err)
	}
	return out.Plaintext, nil
}

// RemoteSigner decrypts a KMS-wrapped private key once per Sign call,
// signs with it, and discards the plaintext immediately. It implements
// crypto.Signer so the certificate/node signing state machine can treat
// KMS-backed and locally-sealed identities identically.
type RemoteSigner struct {
	client     *Client
	ciphertext []byte
	publicKey  []byte

	mu sync.Mutex
}

// NewRemoteSigner wraps a KMS ciphertext blob for the identity identified
// by publicKey. publicKey's length determines the signing scheme per
// crypto.SchemeOf.
func NewRemoteSigner(client *Client, ciphertext, publicKey []byte) *RemoteSigner {
	return &RemoteSigner{client: client, ciphertext: ciphertext, publicKey: append([]byte(nil), publicKey...)}
}

// PublicKey returns the identity's public key / address.
func (r *RemoteSigner) PublicKey() []byte {
	return append([]byte(nil), r.publicKey...)
}

// Sign decrypts the wrapped private key via KMS, signs message with it,
// and zeroes the plaintext copy before returning.
func (r *RemoteSigner) Sign(message []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plaintext, err := r.client.Decrypt(context.Background(), r.ciphertext)
	if err != nil {
		return nil, err
	}
	defer zero(plaintext)

	var kp *oc.KeyPair
	switch oc.SchemeOf(r.publicKey) {
	case oc.SchemeEd25519:
		kp = oc.NewEd25519KeyPair(ed25519.PrivateKey(plaintext))
	case oc.SchemeEthereum:
		kp, err = oc.NewEthereumKeyPair(plaintext)
		if err != nil {
			return nil, err
		}
	default:
		return nil, oc.ErrCryptoSchemaUnknown
	}
	return kp.Sign(message)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
