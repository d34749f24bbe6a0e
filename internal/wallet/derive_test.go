package wallet

import (
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeriver(t *testing.T) *Deriver {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	d, err := NewDeriver(key)
	require.NoError(t, err)
	return d
}

func TestNewDeriver_NilKey(t *testing.T) {
	_, err := NewDeriver(nil)
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestDerive_Deterministic(t *testing.T) {
	d := newTestDeriver(t)
	owner := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1")

	first := d.Derive(owner)
	second := d.Derive(owner)
	assert.Equal(t, first, second)
	assert.NotEqual(t, common.Address{}, first)
}

func TestDerive_DistinctOwnersDistinctProxies(t *testing.T) {
	d := newTestDeriver(t)

	seen := make(map[common.Address]common.Address, 1000)
	for i := 0; i < 1000; i++ {
		var raw [20]byte
		_, err := rand.Read(raw[:])
		require.NoError(t, err)
		owner := common.BytesToAddress(raw[:])
		if _, dup := seen[owner]; dup {
			continue
		}
		proxy := d.Derive(owner)
		for prevOwner, prevProxy := range seen {
			if prevProxy == proxy {
				t.Fatalf("collision: owners %s and %s both derive %s", prevOwner, owner, proxy)
			}
		}
		seen[owner] = proxy
	}
}

func TestDerive_DependsOnServerKey(t *testing.T) {
	owner := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1")
	a := newTestDeriver(t)
	b := newTestDeriver(t)
	assert.NotEqual(t, a.Derive(owner), b.Derive(owner))
}

func TestDerive_ProxyDiffersFromOwner(t *testing.T) {
	d := newTestDeriver(t)
	owner := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1")
	assert.NotEqual(t, owner, d.Derive(owner))
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1"), addr)

	for _, bad := range []string{"", "0x123", "not-an-address", "0xZZAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1"} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, "input %q", bad)
	}
}
