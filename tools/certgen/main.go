// Package main generates a development CA plus server and client
// certificates, writing them to files under the "certs" directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/atinyakov/GophTodo/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	host := flag.String("host", "localhost", "server host name")
	label := flag.String("client", "dev", "label of the client certificate")
	flag.Parse()

	id, err := generate(*dir, *host, *label)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into ./%s\nclient identity: %s\n", *dir, id)
}

// generate writes ca, server and client certificate/key pairs into dir and
// returns the identity of the client certificate.
func generate(dir, host, label string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	ca, err := certgen.NewAuthority("GophTodo CA")
	if err != nil {
		return "", err
	}
	caKey, err := ca.KeyPEM()
	if err != nil {
		return "", err
	}
	if err := writePair(dir, "ca", ca.CertPEM(), caKey); err != nil {
		return "", err
	}

	server, err := ca.IssueServer(host)
	if err != nil {
		return "", err
	}
	if err := writePair(dir, "server", server.CertPEM, server.KeyPEM); err != nil {
		return "", err
	}

	client, err := ca.IssueClient(label)
	if err != nil {
		return "", err
	}
	if err := writePair(dir, "client", client.CertPEM, client.KeyPEM); err != nil {
		return "", err
	}
	return client.Identity.String(), nil
}

// writePair writes name.crt and name.key into dir.
func writePair(dir, name string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(filepath.Join(dir, name+".crt"), certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s.crt: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".key"), keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s.key: %w", name, err)
	}
	return nil
}
