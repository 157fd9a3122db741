// Package receipt produces signed settlement receipts. Each claim emits
// a CBOR-encoded settlement record wrapped in a COSE_Sign1 envelope so
// external callers can verify what was distributed without trusting the
// transport.
package receipt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// Share is one payee's slice of a settled high bid.
type Share struct {
	Account string `cbor:"account" json:"account"`
	Amount  uint64 `cbor:"amount" json:"amount"`
}

// Settlement is the payload of a signed receipt: what was settled, to
// whom the item went, and how the winning bid was distributed. The
// share amounts always sum to exactly Amount.
type Settlement struct {
	Epoch     uint64  `cbor:"epoch" json:"epoch"`
	Winner    string  `cbor:"winner" json:"winner"`
	Amount    uint64  `cbor:"amount" json:"amount"`
	Shares    []Share `cbor:"shares" json:"shares"`
	ItemRef   string  `cbor:"item_ref" json:"item_ref"`
	SettledAt int64   `cbor:"settled_at" json:"settled_at"`
}

// Signer signs settlement receipts with an ECDSA P-256 key (COSE ES256).
type Signer struct {
	key    *ecdsa.PrivateKey
	signer cose.Signer
}

// NewSigner generates a fresh P-256 signing key.
func NewSigner() (*Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate receipt key: %w", err)
	}
	return newSignerFromKey(key)
}

// LoadSigner parses a PEM-encoded EC private key.
func LoadSigner(pemBytes []byte) (*Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, fmt.Errorf("no EC private key block found")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse receipt key: %w", err)
	}
	return newSignerFromKey(key)
}

func newSignerFromKey(key *ecdsa.PrivateKey) (*Signer, error) {
	coseSigner, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("create COSE signer: %w", err)
	}
	return &Signer{key: key, signer: coseSigner}, nil
}

// PrivateKeyPEM exports the signing key for persistence across
// restarts.
func (s *Signer) PrivateKeyPEM() ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(s.key)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}

// PublicKeyPEM exports the verification key in PKIX PEM form for
// distribution to callers.
func (s *Signer) PublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// PublicKey returns the verification key.
func (s *Signer) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

// Sign wraps the settlement in a COSE_Sign1 envelope and returns the
// CBOR encoding.
func (s *Signer) Sign(settlement *Settlement) ([]byte, error) {
	payload, err := cbor.Marshal(settlement)
	if err != nil {
		return nil, fmt.Errorf("encode settlement: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Payload = payload

	if err := msg.Sign(rand.Reader, nil, s.signer); err != nil {
		return nil, fmt.Errorf("sign settlement: %w", err)
	}

	signed, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encode COSE envelope: %w", err)
	}
	return signed, nil
}

// Verify checks a COSE_Sign1 receipt against the given key and returns
// the embedded settlement.
func Verify(signed []byte, key *ecdsa.PublicKey) (*Settlement, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, fmt.Errorf("decode COSE envelope: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("create COSE verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("verify receipt signature: %w", err)
	}

	var settlement Settlement
	if err := cbor.Unmarshal(msg.Payload, &settlement); err != nil {
		return nil, fmt.Errorf("decode settlement: %w", err)
	}
	return &settlement, nil
}
