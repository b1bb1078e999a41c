package client

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/atinyakov/GophTodo/internal/models"
)

const (
	// CertFile and KeyFile are the names Register saves the issued credentials under.
	CertFile = "client.crt"
	KeyFile  = "client.key"
)

func caPool(caPath string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	return pool, nil
}

// Register asks the server for a client certificate labelled login and saves
// it with its key into dir. It returns the identity the certificate maps to.
func Register(registerURL, login, caPath, dir string) (models.Identity, error) {
	pool, err := caPool(caPath)
	if err != nil {
		return models.Identity{}, err
	}
	client := &http.Client{
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}},
		Timeout:   10 * time.Second,
	}

	b, _ := json.Marshal(map[string]string{"login": login})
	resp, err := client.Post(registerURL, "application/json", bytes.NewReader(b))
	if err != nil {
		return models.Identity{}, fmt.Errorf("register failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return models.Identity{}, fmt.Errorf("server error: %s", string(data))
	}

	var issued struct {
		Cert     string          `json:"cert"`
		Key      string          `json:"key"`
		Identity models.Identity `json:"identity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
		return models.Identity{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, CertFile), []byte(issued.Cert), 0o600); err != nil {
		return models.Identity{}, fmt.Errorf("failed to save %s: %w", CertFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, KeyFile), []byte(issued.Key), 0o600); err != nil {
		return models.Identity{}, fmt.Errorf("failed to save %s: %w", KeyFile, err)
	}
	return issued.Identity, nil
}

// LoadClientCertificate builds an HTTP client presenting the certificate in
// certFile and trusting only the CA in caFile.
func LoadClientCertificate(certFile, keyFile, caFile string) (*http.Client, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert/key: %w", err)
	}
	pool, err := caPool(caFile)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      pool,
			MinVersion:   tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: 10 * time.Second}, nil
}
