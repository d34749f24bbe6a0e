// secrets-init seeds the gocast secret store: the server signing key
// ("server_key") or the operator mnemonic ("mnemonic"). Values are read
// from stdin so they never land in shell history.
//
// Generate and store a fresh server key:
//
//	gocast-secrets-init -generate
//
// Store a mnemonic:
//
//	gocast-secrets-init -key mnemonic < /dev/tty
package main

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/betcast/gocast/pkg/secretstore"
)

func main() {
	var (
		dbPath    = flag.String("badger", getenv("GOCAST_SECRET_DB", "data/secrets"), "badger secrets db path")
		secretKey = flag.String("secret-key", getenv("GOCAST_SECRET_DB_KEY", ""), "badger encryption key (32 bytes base64/hex)")
		name      = flag.String("key", "server_key", "store key to write (server_key or mnemonic)")
		generate  = flag.Bool("generate", false, "generate a fresh secp256k1 key instead of reading stdin")
		force     = flag.Bool("force", false, "overwrite an existing value")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
	})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	if _, exists, err := ss.GetString(*name); err != nil {
		fatal(err)
	} else if exists && !*force {
		fatal(fmt.Errorf("%q already set in %s (use -force to overwrite)", *name, *dbPath))
	}

	var value string
	switch {
	case *generate:
		if *name != "server_key" {
			fatal(fmt.Errorf("-generate only applies to server_key"))
		}
		key, err := ecdsaKey()
		if err != nil {
			fatal(err)
		}
		value = hex.EncodeToString(crypto.FromECDSA(key))
		fmt.Fprintf(os.Stderr, "generated server key, address %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
	default:
		fmt.Fprintf(os.Stderr, "enter value for %q, then newline:\n", *name)
		value = strings.TrimSpace(readLine())
		if value == "" {
			fatal(fmt.Errorf("empty value"))
		}
	}

	if err := ss.SetString(*name, value); err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "stored %q in %s\n", *name, *dbPath)
}

func ecdsaKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(crypto.S256(), rand.Reader)
}

func readLine() string {
	s := bufio.NewScanner(os.Stdin)
	if !s.Scan() {
		return ""
	}
	return s.Text()
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
