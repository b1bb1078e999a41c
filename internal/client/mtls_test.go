package client

import (
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atinyakov/GophTodo/internal/certgen"
	"github.com/atinyakov/GophTodo/internal/models"
)

// trustServer writes the test server's certificate as a CA file.
func trustServer(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(path, certPEM, 0o600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}
	return path
}

func TestRegister_ReadCAError(t *testing.T) {
	_, err := Register("https://example.com", "user", "nonexistent.pem", t.TempDir())
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file not exist error, got %v", err)
	}
}

func TestRegister_InvalidCA(t *testing.T) {
	caPath := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caPath, []byte("invalid pem"), 0o600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}
	_, err := Register("https://example.com", "user", caPath, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "failed to parse CA cert") {
		t.Errorf("expected parse CA error, got %v", err)
	}
}

func TestRegister_ServerError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "failed to load CA", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Register(srv.URL+"/api/register", "user", trustServer(t, srv), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "failed to load CA") {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestRegister_SavesCredentials(t *testing.T) {
	want := models.Identity{7}
	var gotLogin string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotLogin = req["login"]
		_ = json.NewEncoder(w).Encode(map[string]any{"cert": "CERT", "key": "KEY", "identity": want})
	}))
	defer srv.Close()

	dir := t.TempDir()
	id, err := Register(srv.URL+"/api/register", "alice", trustServer(t, srv), dir)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id != want {
		t.Errorf("identity = %s; want %s", id, want)
	}
	if gotLogin != "alice" {
		t.Errorf("login sent = %q", gotLogin)
	}
	for name, content := range map[string]string{CertFile: "CERT", KeyFile: "KEY"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || string(data) != content {
			t.Errorf("%s = %q, %v; want %q", name, data, err, content)
		}
	}
}

func TestLoadClientCertificate(t *testing.T) {
	ca, err := certgen.NewAuthority("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	issued, err := ca.IssueClient("alice")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	certPath, keyPath, caPath := filepath.Join(dir, CertFile), filepath.Join(dir, KeyFile), filepath.Join(dir, "ca.crt")
	for path, data := range map[string][]byte{certPath: issued.CertPEM, keyPath: issued.KeyPEM, caPath: ca.CertPEM()} {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	c, err := LoadClientCertificate(certPath, keyPath, caPath)
	if err != nil {
		t.Fatalf("LoadClientCertificate: %v", err)
	}
	if c.Timeout == 0 {
		t.Error("expected a client timeout")
	}

	if _, err := LoadClientCertificate(certPath, "missing.key", caPath); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := LoadClientCertificate(certPath, keyPath, "missing.crt"); err == nil {
		t.Error("expected error for missing CA")
	}
}
