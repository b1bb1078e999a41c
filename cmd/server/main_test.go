package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atinyakov/GophTodo/internal/certgen"
	"github.com/atinyakov/GophTodo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T) *config.Options {
	t.Helper()
	o := config.Default()
	o.Config = ""
	o.Driver = "memory"
	o.LogLevel = "error"
	o.CertsDir = t.TempDir()
	return o
}

func writeServerCerts(t *testing.T, dir string) {
	t.Helper()
	ca, err := certgen.NewAuthority("test CA")
	require.NoError(t, err)
	caKey, err := ca.KeyPEM()
	require.NoError(t, err)
	srv, err := ca.IssueServer("localhost")
	require.NoError(t, err)

	for name, data := range map[string][]byte{
		"ca.crt":     ca.CertPEM(),
		"ca.key":     caKey,
		"server.crt": srv.CertPEM,
		"server.key": srv.KeyPEM,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}
}

func TestRun_UnknownDriverReturnsError(t *testing.T) {
	o := testOptions(t)
	o.Driver = "mongo"
	assert.ErrorContains(t, run(o), "init mongo record store")
}

func TestRun_MissingServerCertificate(t *testing.T) {
	o := testOptions(t)
	assert.ErrorContains(t, run(o), "load server TLS cert/key")
}

func TestRun_SQLiteStoreClosedOnStartupFailure(t *testing.T) {
	o := testOptions(t)
	o.Driver = "sqlite"
	o.SQLitePath = filepath.Join(t.TempDir(), "todo.db")

	require.ErrorContains(t, run(o), "load server TLS cert/key")
	_, err := os.Stat(o.SQLitePath)
	assert.NoError(t, err, "store was opened before the failure")
}

func TestServerTLS(t *testing.T) {
	dir := t.TempDir()
	writeServerCerts(t, dir)

	cfg, err := serverTLS(dir, filepath.Join(dir, "ca.crt"))
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.NotNil(t, cfg.ClientCAs)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-ca.crt"), []byte("not pem"), 0o600))
	_, err = serverTLS(dir, filepath.Join(dir, "bad-ca.crt"))
	assert.ErrorContains(t, err, "no certificates in")

	_, err = serverTLS(dir, filepath.Join(dir, "missing.crt"))
	assert.ErrorContains(t, err, "read CA cert")
}
