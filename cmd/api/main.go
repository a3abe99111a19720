package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kitabu.org/internal/book"
	"kitabu.org/internal/httpapi"
	"kitabu.org/internal/obs"
	"kitabu.org/internal/store/pg"
	"kitabu.org/internal/tenant"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("KITABU_COMMIT"))

	secret := os.Getenv("KITABU_TENANT_SECRET")
	if secret == "" {
		log.Fatal("KITABU_TENANT_SECRET is required")
	}
	verifier, err := tenant.NewVerifier(secret, os.Getenv("KITABU_TENANT_ISSUER"))
	if err != nil {
		log.Fatalf("tenant verifier: %v", err)
	}

	// With a DSN the ledger lives in Postgres; without one the in-process
	// implementation serves development and tests.
	var svc book.Service = book.NewInMemory()
	probe := httpapi.ReadyProbe{}
	var store *pg.Store
	if dsn := os.Getenv("KITABU_PG_DSN"); dsn != "" {
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		svc = store
		probe = httpapi.ReadyProbe{DB: store.DB()}
	}

	api := httpapi.New(svc, verifier, probe, version)

	addr := os.Getenv("KITABU_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting kitabu-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if store != nil {
		_ = store.Close()
	}
	log.Println("Stopped")
}
