package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
)

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)
	m, err := NewManagerAt(dir, log)
	require.NoError(t, err)
	return m
}

func TestSetGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)

	require.NoError(t, m.Set("shodan_api_key", "abc123"))

	// A fresh manager over the same directory sees the value.
	m2 := newTestManager(t, dir)
	got, ok := m2.Get("shodan_api_key")
	require.True(t, ok)
	assert.Equal(t, "abc123", got)

	info, err := os.Stat(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestValuesEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)

	require.NoError(t, m.Set("virustotal_api_key", "plaintext-secret"))

	raw, err := os.ReadFile(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plaintext-secret")
	assert.NotContains(t, string(raw), "virustotal")
}

func TestGetMissing(t *testing.T) {
	m := newTestManager(t, t.TempDir())

	_, ok := m.Get("nope")
	assert.False(t, ok)
}

func TestDeleteAndNames(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)

	require.NoError(t, m.Set("censys_api_id", "id"))
	require.NoError(t, m.Set("censys_api_secret", "secret"))
	assert.Equal(t, []string{"censys_api_id", "censys_api_secret"}, m.Names())

	require.NoError(t, m.Delete("censys_api_id"))
	assert.Equal(t, []string{"censys_api_secret"}, m.Names())
}

func TestEnsureAPIBearer(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)

	token, err := m.EnsureAPIBearer()
	require.NoError(t, err)
	assert.Len(t, token, 64)

	// Stable across restarts.
	m2 := newTestManager(t, dir)
	again, err := m2.EnsureAPIBearer()
	require.NoError(t, err)
	assert.Equal(t, token, again)
}

func TestPassphraseKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHARINGAN_CREDENTIALS_KEY", "correct horse battery staple")

	m := newTestManager(t, dir)
	require.NoError(t, m.Set("api_key", "tok"))

	// No key file is written when a passphrase drives the encryption.
	_, err := os.Stat(filepath.Join(dir, ".key"))
	assert.True(t, os.IsNotExist(err))

	got, ok := newTestManager(t, dir).Get("api_key")
	require.True(t, ok)
	assert.Equal(t, "tok", got)

	// The wrong passphrase cannot open the store.
	t.Setenv("SHARINGAN_CREDENTIALS_KEY", "wrong")
	require.Error(t, newTestManager(t, dir).Load())
}

func TestTamperedStore(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)
	require.NoError(t, m.Set("api_key", "tok"))

	path := filepath.Join(dir, "credentials.enc")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	require.Error(t, newTestManager(t, dir).Load())
}

func TestDeriveKeyFromPassword(t *testing.T) {
	a := DeriveKeyFromPassword("hunter2")
	b := DeriveKeyFromPassword("hunter2")
	c := DeriveKeyFromPassword("hunter3")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}
