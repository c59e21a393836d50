/*
main.go - Application entry point

PURPOSE:

	Starts the expense-ledger server: loads configuration, opens the chosen
	storage backend, pulls the full ledger into memory, and serves the HTTP
	API with graceful shutdown.

CONFIGURATION:

	Flags (each with an environment fallback loaded from .env):
	  -port    HTTP port                    (PORT, default 8080)
	  -store   Storage backend: file|sqlite (STORE_BACKEND, default file)
	  -data    Data directory or db path    (DATA_PATH, default ./data)

	LOG_LEVEL selects the logrus level (debug|info|warn|error).

EXAMPLES:

	# File-backed, default layout under ./data
	./server

	# SQLite-backed
	./server -store=sqlite -data=./ledger.db
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/split-ledger/api"
	"github.com/warp/split-ledger/ledger"
	"github.com/warp/split-ledger/service"
	"github.com/warp/split-ledger/store/file"
	"github.com/warp/split-ledger/store/sqlite"
)

func main() {
	// .env is optional; flags win over the environment.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	backend := flag.String("store", envStr("STORE_BACKEND", "file"), "storage backend: file or sqlite")
	dataPath := flag.String("data", envStr("DATA_PATH", "./data"), "data directory (file) or database path (sqlite)")
	flag.Parse()

	log := newLogger()

	st, closeStore, err := openStore(*backend, *dataPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer closeStore()

	svc, err := service.New(context.Background(), st, log)
	if err != nil {
		log.WithError(err).Fatal("failed to load ledger")
	}

	router := api.NewRouter(api.NewHandler(svc, log))
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":  *port,
			"store": *backend,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}
	log.Info("server stopped")
}

func openStore(backend, dataPath string) (ledger.Store, func(), error) {
	switch backend {
	case "file":
		st, err := file.New(dataPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	case "sqlite":
		st, err := sqlite.New(dataPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
