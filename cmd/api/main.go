package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lordvorath/chirpy/internal/config"
	"github.com/lordvorath/chirpy/internal/content"
	"github.com/lordvorath/chirpy/internal/httpapi"
	"github.com/lordvorath/chirpy/internal/obs"
	"github.com/lordvorath/chirpy/internal/session"
)

var (
	version = "1.0.0"
	commit  = "none"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	db, err := sql.Open("pgx", cfg.DBURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	sessions, err := session.NewService(
		session.NewPGUserStore(db),
		session.NewPGRefreshTokenStore(db),
		cfg.Secret,
	)
	if err != nil {
		log.Fatalf("session service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, sessions, content.NewPGStore(db), httpapi.Config{
		Version:   version,
		Platform:  cfg.Platform,
		PolkaKey:  cfg.PolkaKey,
		StaticDir: cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting chirpy-api %s on %s", version, srv.Addr)

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
	_ = db.Close()
	log.Println("Stopped")
}
