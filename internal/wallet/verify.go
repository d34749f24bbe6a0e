package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSignatureMismatch means the recovered signer does not match the
// claimed address. Callers must not create or touch any session on it.
var ErrSignatureMismatch = errors.New("wallet: signature mismatch")

// VerifyPersonalSignature checks an EIP-191 personal_sign signature over
// message against the claimed address.
func VerifyPersonalSignature(message string, signatureHex string, claimed common.Address) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(signatureHex, "0x"))
	if err != nil || len(sig) != 65 {
		return ErrSignatureMismatch
	}

	// Wallets emit V as 27/28; SigToPub wants 0/1.
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return ErrSignatureMismatch
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256([]byte(prefixed))

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return ErrSignatureMismatch
	}
	if crypto.PubkeyToAddress(*pub) != claimed {
		return ErrSignatureMismatch
	}
	return nil
}
