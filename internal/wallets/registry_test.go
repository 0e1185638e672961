package wallets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"whale-screener/internal/domain"
)

func TestDefaultRegistry(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	require.Equal(t, 30, reg.Len())

	all := reg.All()
	for i := 1; i < len(all); i++ {
		require.GreaterOrEqual(t, all[i-1].AccountValue, all[i].AccountValue,
			"wallets not sorted by account value at index %d", i)
	}
	for _, w := range all {
		require.NotEmpty(t, w.Label)
		require.Contains(t, []domain.Entity{domain.EntityRetail, domain.EntityVC, domain.EntityMarketMaker}, w.Entity)
		require.Positive(t, w.AccountValue)
	}
}

func TestRegistryGetCaseInsensitive(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	w, ok := reg.Get("0xECB63CAA47C7C4E77F60F1CE858CF28DC2B82B00")
	require.True(t, ok)
	require.Equal(t, "Wintermute Market Making", w.Label)
	require.Equal(t, domain.EntityMarketMaker, w.Entity)

	_, ok = reg.Get("0x0000000000000000000000000000000000000000")
	require.False(t, ok)
}

func TestRegistrySelect(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	vcs := reg.Select(domain.EntityVC, 0)
	require.Len(t, vcs, 3)
	for _, w := range vcs {
		require.Equal(t, domain.EntityVC, w.Entity)
	}

	top := reg.Select("", 5)
	require.Len(t, top, 5)
	require.Equal(t, reg.All()[:5], top)

	limited := reg.Select(domain.EntityRetail, 2)
	require.Len(t, limited, 2)
}

func TestLoadFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	data := []byte(`wallets:
  - address: "0xAAAA000000000000000000000000000000000001"
    label: "Test Fund"
    entity: "VCs"
    account_value: 12000000
    roi: 0.2
    total_pnl: 100000
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	w, ok := reg.Get("0xaaaa000000000000000000000000000000000001")
	require.True(t, ok)
	require.Equal(t, "Test Fund", w.Label)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wallets: []\n"), 0o644))
	_, err = LoadFile(path)
	require.ErrorContains(t, err, "no wallets")

	dupPath := filepath.Join(t.TempDir(), "dup.yaml")
	dup := []byte(`wallets:
  - address: "0xabc"
    label: "A"
    entity: "retail"
    account_value: 1
  - address: "0xABC"
    label: "B"
    entity: "retail"
    account_value: 2
`)
	require.NoError(t, os.WriteFile(dupPath, dup, 0o644))
	_, err = LoadFile(dupPath)
	require.ErrorContains(t, err, "duplicate address")
}
