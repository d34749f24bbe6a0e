package wallet

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func signPersonal(t *testing.T, keyHex, message string) (string, string) {
	t.Helper()
	key, err := crypto.HexToECDSA(keyHex)
	require.NoError(t, err)

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), key)
	require.NoError(t, err)
	sig[64] += 27 // wallet-style recovery id

	addr := crypto.PubkeyToAddress(key.PublicKey)
	return "0x" + hex.EncodeToString(sig), addr.Hex()
}

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestVerifyPersonalSignature_Valid(t *testing.T) {
	msg := "gocast login"
	sigHex, addrHex := signPersonal(t, testKeyHex, msg)

	claimed, err := ParseAddress(addrHex)
	require.NoError(t, err)
	require.NoError(t, VerifyPersonalSignature(msg, sigHex, claimed))
}

func TestVerifyPersonalSignature_WrongAddress(t *testing.T) {
	msg := "gocast login"
	sigHex, _ := signPersonal(t, testKeyHex, msg)

	other, err := ParseAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1")
	require.NoError(t, err)
	require.ErrorIs(t, VerifyPersonalSignature(msg, sigHex, other), ErrSignatureMismatch)
}

func TestVerifyPersonalSignature_WrongMessage(t *testing.T) {
	sigHex, addrHex := signPersonal(t, testKeyHex, "gocast login")

	claimed, err := ParseAddress(addrHex)
	require.NoError(t, err)
	require.ErrorIs(t, VerifyPersonalSignature("another message", sigHex, claimed), ErrSignatureMismatch)
}

func TestVerifyPersonalSignature_Garbage(t *testing.T) {
	claimed, err := ParseAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1")
	require.NoError(t, err)

	for _, bad := range []string{"", "0x00", "0x" + "ff", "zzzz"} {
		require.ErrorIs(t, VerifyPersonalSignature("m", bad, claimed), ErrSignatureMismatch, "input %q", bad)
	}
}
