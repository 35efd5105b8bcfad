// Package key manages the secp256k1 key pairs used to sign StarkBank requests.
package key

import (
	"crypto/sha256"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/coachpo/starkbank/errs"
)

const (
	privatePEMType = "EC PRIVATE KEY"
	publicPEMType  = "PUBLIC KEY"
)

var (
	oidSecp256k1       = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
	oidECPublicKey     = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	errUnsupportedType = errors.New("unsupported key encoding")
)

// ecPrivateKey mirrors the SEC 1 ECPrivateKey structure.
type ecPrivateKey struct {
	Version       int
	PrivateKey    []byte
	NamedCurveOID asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey     asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}

type subjectPublicKeyInfo struct {
	Algorithm algorithmIdentifier
	PublicKey asn1.BitString
}

// PrivateKey signs request payloads.
type PrivateKey struct {
	inner *secp256k1.PrivateKey
}

// Generate creates a fresh private key.
func Generate() (*PrivateKey, error) {
	inner, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	return &PrivateKey{inner: inner}, nil
}

// Load parses a PEM encoded SEC 1 private key.
func Load(pemText string) (*PrivateKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(pemText)))
	if block == nil {
		return nil, errs.Input("PrivateKey", "private key is not PEM encoded")
	}
	if block.Type != privatePEMType {
		return nil, errs.Input("PrivateKey", fmt.Sprintf("unexpected PEM block %q", block.Type), errs.WithCause(errUnsupportedType))
	}
	var parsed ecPrivateKey
	if _, err := asn1.Unmarshal(block.Bytes, &parsed); err != nil {
		return nil, errs.Input("PrivateKey", "decode private key", errs.WithCause(err))
	}
	if len(parsed.NamedCurveOID) > 0 && !parsed.NamedCurveOID.Equal(oidSecp256k1) {
		return nil, errs.Input("PrivateKey", fmt.Sprintf("unsupported curve %s", parsed.NamedCurveOID), errs.WithCause(errUnsupportedType))
	}
	if len(parsed.PrivateKey) == 0 || len(parsed.PrivateKey) > 32 {
		return nil, errs.Input("PrivateKey", "private key scalar has invalid length")
	}
	return &PrivateKey{inner: secp256k1.PrivKeyFromBytes(parsed.PrivateKey)}, nil
}

// LoadFile reads a PEM private key from path.
func LoadFile(path string) (*PrivateKey, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return Load(string(content))
}

// PEM renders the key in SEC 1 PEM form.
func (k *PrivateKey) PEM() (string, error) {
	pub := k.inner.PubKey().SerializeUncompressed()
	der, err := asn1.Marshal(ecPrivateKey{
		Version:       1,
		PrivateKey:    k.inner.Serialize(),
		NamedCurveOID: oidSecp256k1,
		PublicKey:     asn1.BitString{Bytes: pub, BitLength: len(pub) * 8},
	})
	if err != nil {
		return "", fmt.Errorf("encode private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: privatePEMType, Bytes: der})), nil
}

// PublicPEM renders the matching public key, which is registered with StarkBank.
func (k *PrivateKey) PublicPEM() (string, error) {
	pub := k.inner.PubKey().SerializeUncompressed()
	der, err := asn1.Marshal(subjectPublicKeyInfo{
		Algorithm: algorithmIdentifier{Algorithm: oidECPublicKey, Parameters: oidSecp256k1},
		PublicKey: asn1.BitString{Bytes: pub, BitLength: len(pub) * 8},
	})
	if err != nil {
		return "", fmt.Errorf("encode public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: publicPEMType, Bytes: der})), nil
}

// Sign returns the base64 DER signature of SHA-256(message).
func (k *PrivateKey) Sign(message string) string {
	digest := sha256.Sum256([]byte(message))
	sig := ecdsa.Sign(k.inner, digest[:])
	return base64.StdEncoding.EncodeToString(sig.Serialize())
}

// Verify checks a base64 DER signature against the key's public half.
func (k *PrivateKey) Verify(message, signature string) bool {
	der, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(message))
	return sig.Verify(digest[:], k.inner.PubKey())
}

// Create generates a key pair and, when dir is not empty, writes
// privateKey.pem and publicKey.pem into it.
func Create(dir string) (privatePEM, publicPEM string, err error) {
	k, err := Generate()
	if err != nil {
		return "", "", err
	}
	if privatePEM, err = k.PEM(); err != nil {
		return "", "", err
	}
	if publicPEM, err = k.PublicPEM(); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(dir) == "" {
		return privatePEM, publicPEM, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "privateKey.pem"), []byte(privatePEM), 0o600); err != nil {
		return "", "", fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "publicKey.pem"), []byte(publicPEM), 0o644); err != nil {
		return "", "", fmt.Errorf("write public key: %w", err)
	}
	return privatePEM, publicPEM, nil
}
