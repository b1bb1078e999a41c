// Package main initializes and starts the GophTodo HTTPS server,
// setting up configuration, logging, the record store, services,
// handlers, metrics and TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	nethttp "net/http"

	"github.com/atinyakov/GophTodo/internal/config"
	"github.com/atinyakov/GophTodo/internal/db"
	"github.com/atinyakov/GophTodo/internal/derive"
	"github.com/atinyakov/GophTodo/internal/logger"
	"github.com/atinyakov/GophTodo/internal/metrics"
	"github.com/atinyakov/GophTodo/internal/repository"
	"github.com/atinyakov/GophTodo/internal/server/handler/http"
	"github.com/atinyakov/GophTodo/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	if err := run(options); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the server from options and blocks until it stops. Startup
// failures are returned so deferred cleanup still runs.
func run(options *config.Options) error {
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver := db.Driver(options.Driver)
	store, conn, err := repository.Open(driver, options.DatabaseDSN, options.SQLitePath, options.MaxRecordSize)
	if err != nil {
		return fmt.Errorf("init %s record store: %w", options.Driver, err)
	}
	if conn != nil {
		defer conn.Close()
		db.StartTombstoneCompactor(ctx, conn, driver,
			options.CompactInterval.Duration,
			options.TombstoneRetention.Duration,
			zapLogger,
		)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewPrometheus(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if options.MetricsAddr != "" {
		go func() {
			zapLogger.Info("serving metrics", zap.String("addr", options.MetricsAddr))
			if err := nethttp.ListenAndServe(options.MetricsAddr, metrics.Handler(registry)); err != nil {
				zapLogger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	deriver := derive.New(derive.NamespaceFromString(options.Namespace))
	svcOpts := []service.Option{service.WithLogger(zapLogger), service.WithMetrics(recorder)}
	profileService := service.NewProfileService(store, deriver, svcOpts...)
	taskService := service.NewTaskService(store, deriver, svcOpts...)

	authHandler := &http.AuthHandler{
		Profiles:   profileService,
		CACertPath: filepath.Join(options.CertsDir, "ca.crt"),
		CAKeyPath:  filepath.Join(options.CertsDir, "ca.key"),
	}
	todoHandler := &http.TodoHandler{Profiles: profileService, Tasks: taskService}

	router := http.NewRouter(authHandler, todoHandler, zapLogger)

	tlsConfig, err := serverTLS(options.CertsDir, authHandler.CACertPath)
	if err != nil {
		return err
	}

	server := &nethttp.Server{
		Addr:      options.Port,
		Handler:   router,
		TLSConfig: tlsConfig,
	}

	zapLogger.Info("starting HTTPS server",
		zap.String("addr", options.Port),
		zap.String("driver", options.Driver),
		zap.String("namespace", options.Namespace),
	)
	if err := server.ListenAndServeTLS("", ""); err != nil {
		return fmt.Errorf("serve HTTPS: %w", err)
	}
	return nil
}

func serverTLS(certsDir, caPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(
		filepath.Join(certsDir, "server.crt"),
		filepath.Join(certsDir, "server.key"),
	)
	if err != nil {
		return nil, fmt.Errorf("load server TLS cert/key: %w", err)
	}

	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("read CA cert: %w", err)
	}
	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("no certificates in %s", caPath)
	}

	// register must work without a certificate, so verification is optional
	// at the TLS layer and enforced per route by CertAuth
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.VerifyClientCertIfGiven,
		ClientCAs:    caCertPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
