package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"

	"github.com/betcast/gocast/pkg/secretstore"
)

const defaultDerivationPath = "m/44'/60'/0'/0/0"

// LoadServerKey resolves the server's signing key. Order: the
// GOCAST_SERVER_KEY env var (32-byte hex), then the secret store key
// "server_key", then a mnemonic ("GOCAST_MNEMONIC" env or store key
// "mnemonic") with an optional GOCAST_DERIVATION_PATH.
// Absence is a configuration error; callers abort startup on it.
func LoadServerKey(secrets *secretstore.Store) (*ecdsa.PrivateKey, error) {
	if raw := strings.TrimSpace(os.Getenv("GOCAST_SERVER_KEY")); raw != "" {
		return parseKeyHex(raw)
	}

	if secrets != nil {
		if raw, ok, err := secrets.GetString("server_key"); err == nil && ok && strings.TrimSpace(raw) != "" {
			return parseKeyHex(strings.TrimSpace(raw))
		}
	}

	mnemonic := strings.TrimSpace(os.Getenv("GOCAST_MNEMONIC"))
	if mnemonic == "" && secrets != nil {
		if mn, ok, err := secrets.GetString("mnemonic"); err == nil && ok {
			mnemonic = strings.TrimSpace(mn)
		}
	}
	if mnemonic != "" {
		path := strings.TrimSpace(os.Getenv("GOCAST_DERIVATION_PATH"))
		if path == "" {
			path = defaultDerivationPath
		}
		return keyFromMnemonic(mnemonic, path)
	}

	return nil, ErrMissingSecret
}

func parseKeyHex(raw string) (*ecdsa.PrivateKey, error) {
	b, err := secretstore.ParseKey(raw)
	if err != nil || b == nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingSecret, err)
	}
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingSecret, err)
	}
	return key, nil
}

func keyFromMnemonic(mnemonic, derivationPath string) (*ecdsa.PrivateKey, error) {
	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mnemonic: %v", ErrMissingSecret, err)
	}
	path, err := hdwallet.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid derivation path: %v", ErrMissingSecret, err)
	}
	acct, err := w.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: derive failed: %v", ErrMissingSecret, err)
	}
	key, err := w.PrivateKey(acct)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", ErrMissingSecret, err)
	}
	return key, nil
}
