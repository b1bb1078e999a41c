package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/atinyakov/GophTodo/internal/certgen"
	"github.com/atinyakov/GophTodo/internal/client"
)

const apiRegister = "/api/register"

var (
	version   string
	buildDate string
)

// main parses command-line flags and dispatches to the register, whoami or shell commands.
func main() {
	var (
		cmd      string
		baseURL  string
		certFile string
		keyFile  string
		caFile   string
		loginStr string
		showVer  bool
	)

	flag.StringVar(&cmd, "cmd", "", "command: register | whoami | shell")
	flag.StringVar(&baseURL, "url", "https://localhost:8080", "server base URL")
	flag.StringVar(&certFile, "cert", client.CertFile, "path to client cert")
	flag.StringVar(&keyFile, "key", client.KeyFile, "path to client key")
	flag.StringVar(&caFile, "ca", "certs/ca.crt", "path to CA cert")
	flag.StringVar(&loginStr, "login", "", "label for the issued certificate")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("GophTodo Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	switch cmd {
	case "register":
		if loginStr == "" {
			log.Fatal("please provide -login=name")
		}
		id, err := client.Register(baseURL+apiRegister, loginStr, caFile, ".")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Registration successful. Certificate saved to %s, identity %s\n", client.CertFile, id)
	case "whoami":
		certPEM, err := os.ReadFile(certFile)
		if err != nil {
			log.Fatal(err)
		}
		id, err := certgen.IdentityFromPEM(certPEM)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(id)
	case "shell":
		httpClient, err := client.LoadClientCertificate(certFile, keyFile, caFile)
		if err != nil {
			log.Fatal(err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sh := &client.Shell{
			API: &client.API{HTTP: httpClient, BaseURL: baseURL},
			In:  os.Stdin,
			Out: os.Stdout,
		}
		sh.Run(ctx)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}
}
