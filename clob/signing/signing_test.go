package signing

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/betcast/gocast/clob/types"
)

// canonical go-ethereum example key
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestGetAddressFromPrivateKey(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	addr := GetAddressFromPrivateKey(key)
	if addr.Hex() != "0x96216849c49358B10257cb55b28eA603c874b05E" {
		t.Fatalf("wrong address: %s", addr.Hex())
	}
}

func TestBuildHmacSignature(t *testing.T) {
	body := `{"hash":"0x123"}`
	sig1, err := BuildHmacSignature("c2VjcmV0LXNlY3JldC1zZWNyZXQ=", 1000000, "POST", "/order", &body)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	sig2, err := BuildHmacSignature("c2VjcmV0LXNlY3JldC1zZWNyZXQ=", 1000000, "POST", "/order", &body)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sig1 != sig2 {
		t.Fatalf("signature not deterministic: %s vs %s", sig1, sig2)
	}
	if strings.ContainsAny(sig1, "+/") {
		t.Fatalf("signature must be URL-safe base64: %s", sig1)
	}

	other, err := BuildHmacSignature("c2VjcmV0LXNlY3JldC1zZWNyZXQ=", 1000001, "POST", "/order", &body)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if other == sig1 {
		t.Fatal("timestamp must change the signature")
	}
}

func TestBuildClobAuthSignature(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	sig, err := BuildClobAuthSignature(key, types.ChainPolygon, 1000000, 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+65*2 {
		t.Fatalf("malformed signature: %s", sig)
	}
	again, err := BuildClobAuthSignature(key, types.ChainPolygon, 1000000, 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sig != again {
		t.Fatal("signature not deterministic")
	}
	amoy, err := BuildClobAuthSignature(key, types.ChainAmoy, 1000000, 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if amoy == sig {
		t.Fatal("chain id must be part of the signing domain")
	}
}

func TestBuildOrderSignature(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	order := &types.SignedOrder{
		Salt:          479249096354,
		Maker:         "0x96216849c49358B10257cb55b28eA603c874b05E",
		Signer:        "0x96216849c49358B10257cb55b28eA603c874b05E",
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       "1234",
		MakerAmount:   "100000000",
		TakerAmount:   "50000000",
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "100",
		Side:          types.SideBuy,
		SignatureType: 0,
	}
	sig, err := BuildOrderSignature(key, types.ChainPolygon, "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E", order)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+65*2 {
		t.Fatalf("malformed signature: %s", sig)
	}

	flipped := *order
	flipped.Side = types.SideSell
	sig2, err := BuildOrderSignature(key, types.ChainPolygon, "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E", &flipped)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sig2 == sig {
		t.Fatal("side must be part of the signed struct")
	}
}
