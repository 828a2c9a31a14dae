package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Zeta Testing Labs", cfg.Company.Name)
	assert.Len(t, cfg.Pricing, 3)

	tier, ok := cfg.Tier("full_panel")
	require.True(t, ok)
	assert.True(t, tier.Popular)
	assert.Equal(t, 400.0, tier.Price)
}

func TestLookup(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	sample, ok := cfg.Lookup(" zt-2024-001 ")
	require.True(t, ok)
	assert.Equal(t, "BPC-157", sample.Compound)
	require.NotNil(t, sample.Purity)
	assert.Equal(t, 99.2, *sample.Purity)

	sample, ok = cfg.Lookup("ZT-2024-003")
	require.True(t, ok)
	assert.Nil(t, sample.Purity)

	_, ok = cfg.Lookup("ZT-1999-001")
	assert.False(t, ok)
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte("company:\n  name: Other Labs\n  email: hi@other.example\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Other Labs", cfg.Company.Name)
	assert.Equal(t, "hi@other.example", cfg.Company.Email)
	assert.Len(t, cfg.Pricing, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
