package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNumberingConfigDefaultsWithoutFile(t *testing.T) {
	holder, err := NewNumberingConfigHolder(Config{NumberingConfigDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultNumberingConfig(), holder.Get())
}

func TestNumberingConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte("numbering:\n  maxAllocationAttempts: 3\n  billIdLayout: yyyymmdd\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invoicebook.yml"), body, 0o600))

	holder, err := NewNumberingConfigHolder(Config{NumberingConfigDir: dir}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, holder.Get().MaxAllocationAttempts)
	assert.Equal(t, BillIDLayoutYYYYMMDD, holder.Get().BillIDLayout)
}

func TestNumberingConfigEnvOverride(t *testing.T) {
	t.Setenv("INVOICEBOOK_NUMBERING_MAXALLOCATIONATTEMPTS", "9")
	t.Setenv("INVOICEBOOK_NUMBERING_BILLIDLAYOUT", "YYYYMMDD")

	holder, err := NewNumberingConfigHolder(Config{NumberingConfigDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 9, holder.Get().MaxAllocationAttempts)
	assert.Equal(t, BillIDLayoutYYYYMMDD, holder.Get().BillIDLayout)

	dir := t.TempDir()
	body := []byte("numbering:\n  maxAllocationAttempts: 3\n  billIdLayout: ddmmyy\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invoicebook.yml"), body, 0o600))

	holder, err = NewNumberingConfigHolder(Config{NumberingConfigDir: dir}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 9, holder.Get().MaxAllocationAttempts)
	assert.Equal(t, BillIDLayoutYYYYMMDD, holder.Get().BillIDLayout)
}

func TestNumberingConfigRejectsBadLayout(t *testing.T) {
	dir := t.TempDir()
	body := []byte("numbering:\n  maxAllocationAttempts: 2\n  billIdLayout: MMDD\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invoicebook.yml"), body, 0o600))

	_, err := NewNumberingConfigHolder(Config{NumberingConfigDir: dir}, zap.NewNop())
	assert.Error(t, err)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *NumberingConfigHolder
	assert.Equal(t, DefaultNumberingConfig(), holder.Get())
}
