package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fairloan.org/internal/filestore"
	"fairloan.org/internal/httpapi"
	"fairloan.org/internal/loan"
	"fairloan.org/internal/notify"
	"fairloan.org/internal/obs"
	"fairloan.org/internal/store/pg"
	"fairloan.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		store   loan.Store
		probe   httpapi.ReadyProbe
		pgStore *pg.Store
	)
	if dsn := os.Getenv("FAIRLOAN_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Print("FAIRLOAN_PG_DSN not set, using in-memory store")
		store = loan.NewInMemory()
	}

	uploadDir := os.Getenv("FAIRLOAN_UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	files, err := filestore.NewDisk(uploadDir)
	if err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	composer := notify.Composer{
		AdminAddress: os.Getenv("FAIRLOAN_ADMIN_EMAIL"),
		PublicURL:    os.Getenv("FAIRLOAN_PUBLIC_URL"),
	}

	st := stream.New()
	svc := loan.NewService(store, files, composer, st)
	api := httpapi.New(probe, version, svc, st)

	addr := os.Getenv("FAIRLOAN_ADDR")
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

	log.Printf("Starting fairloan-api %s on %s", version, srv.Addr)

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
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
