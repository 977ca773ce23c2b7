/*
Package sign implements the optional signing stage wrapped around the
pixelframe codec.

A signed container carries a 64 byte Ed25519 signature over the canvas
immediately after the pixel data. Keys are stored as raw bytes: the secret key
file holds the 32 byte seed and the public key file the 32 byte public key.
*/
package sign

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
)

// SignatureSize is the size in bytes of the signature trailer
const SignatureSize = ed25519.SignatureSize

var (
	// ErrBadSignature is returned when a signature does not verify
	ErrBadSignature = errors.New("sign: bad signature")
	// ErrUnsigned is returned when verification is requested for a
	// container without a signature trailer
	ErrUnsigned = errors.New("sign: container is not signed")
	// ErrInvalidKey is returned for a key file of the wrong size
	ErrInvalidKey = errors.New("sign: invalid key")
)

// GenerateKey creates a new Ed25519 keypair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating Ed25519 keypair: %w", err)
	}
	return public, private, nil
}

// SaveKeypair writes the seed of private to secretPath with 0600
// permissions and public to publicPath with 0644 permissions.
func SaveKeypair(secretPath, publicPath string, public ed25519.PublicKey, private ed25519.PrivateKey) error {
	if err := os.WriteFile(secretPath, private.Seed(), 0600); err != nil {
		return fmt.Errorf("writing secret key %s: %w", secretPath, err)
	}
	if err := os.WriteFile(publicPath, public, 0644); err != nil {
		return fmt.Errorf("writing public key %s: %w", publicPath, err)
	}
	return nil
}

// LoadSecretKey reads a secret key file. Both the 32 byte seed and the 64
// byte expanded private key are accepted.
func LoadSecretKey(path string) (ed25519.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secret key %s: %w", path, err)
	}
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, fmt.Errorf("%w: secret key %s has %d bytes, want %d", ErrInvalidKey, path, len(b), ed25519.SeedSize)
	}
}

// LoadPublicKey reads a raw 32 byte public key file.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading public key %s: %w", path, err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key %s has %d bytes, want %d", ErrInvalidKey, path, len(b), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(b), nil
}

// Sign returns the signature trailer for pix
func Sign(private ed25519.PrivateKey, pix []byte) []byte {
	return ed25519.Sign(private, pix)
}

// Verify checks the trailer following the canvas against pix
func Verify(public ed25519.PublicKey, pix, trailer []byte) error {
	if len(trailer) == 0 {
		return ErrUnsigned
	}
	if len(trailer) != SignatureSize || !ed25519.Verify(public, pix, trailer) {
		return ErrBadSignature
	}
	return nil
}
