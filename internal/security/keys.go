package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	PublicKeyFile  = "ledger.pub"
	PrivateKeyFile = "ledger.priv"
)

// KeyPair signs ledger entries.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeyPair creates a new ed25519 key pair
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// Save writes both keys hex-encoded into dir.
func (k KeyPair) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, PublicKeyFile), []byte(hex.EncodeToString(k.Public)), 0600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, PrivateKeyFile), []byte(hex.EncodeToString(k.Private)), 0600)
}

// LoadKeyPair reads a key pair written by Save.
func LoadKeyPair(dir string) (KeyPair, error) {
	pub, err := readHexKey(filepath.Join(dir, PublicKeyFile), ed25519.PublicKeySize)
	if err != nil {
		return KeyPair{}, err
	}
	priv, err := readHexKey(filepath.Join(dir, PrivateKeyFile), ed25519.PrivateKeySize)
	if err != nil {
		return KeyPair{}, err
	}
	kp := KeyPair{Public: ed25519.PublicKey(pub), Private: ed25519.PrivateKey(priv)}
	if !kp.Public.Equal(kp.Private.Public()) {
		return KeyPair{}, errors.New("public key does not match private key")
	}
	return kp, nil
}

// EnsureKeyPair loads the key pair from dir, generating and saving one when
// none exists. created reports whether new keys were written.
func EnsureKeyPair(dir string) (kp KeyPair, created bool, err error) {
	if _, err := os.Stat(filepath.Join(dir, PublicKeyFile)); errors.Is(err, os.ErrNotExist) {
		kp, err := GenerateKeyPair()
		if err != nil {
			return KeyPair{}, false, err
		}
		if err := kp.Save(dir); err != nil {
			return KeyPair{}, false, err
		}
		return kp, true, nil
	}
	kp, err = LoadKeyPair(dir)
	return kp, false, err
}

// Sign returns the hex signature of data.
func (k KeyPair) Sign(data []byte) (string, error) {
	if len(k.Private) != ed25519.PrivateKeySize {
		return "", errors.New("private key is empty, cannot sign")
	}
	return hex.EncodeToString(ed25519.Sign(k.Private, data)), nil
}

// PublicHex returns the hex-encoded public key.
func (k KeyPair) PublicHex() string { return hex.EncodeToString(k.Public) }

// VerifyHex checks a hex signature against a hex-encoded public key.
func VerifyHex(pubHex string, data []byte, sigHex string) (bool, error) {
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		return false, fmt.Errorf("decode public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, errors.New("invalid public key size")
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil
}

func readHexKey(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(key) != size {
		return nil, fmt.Errorf("%s: invalid key size %d", path, len(key))
	}
	return key, nil
}
