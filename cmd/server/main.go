package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/acrane/parlor/internal/api"
	"github.com/acrane/parlor/internal/board"
	"github.com/acrane/parlor/internal/config"
	"github.com/acrane/parlor/internal/database"
	"github.com/acrane/parlor/internal/stats"
	_ "github.com/lib/pq"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	sessionTTL     time.Duration
	sweepInterval  time.Duration
	adminUser      string
	adminPassword  string
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.DurationVar(&sessionTTL, "session-ttl", config.DefaultSessionTTL, "idle time before a session expires")
	flag.DurationVar(&sweepInterval, "sweep-interval", config.DefaultSweepInterval, "how often idle sessions are swept")
	flag.StringVar(&adminUser, "admin-user", "", "admin username to seed at startup")
	flag.StringVar(&adminPassword, "admin-password", "", "admin password to seed at startup")
	flag.Parse()

	logger := log.New(os.Stderr, "[parlor] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.SessionTTL = sessionTTL
	cfg.SweepInterval = sweepInterval
	cfg.AdminUser = adminUser
	cfg.AdminPassword = adminPassword

	dbConn, err := database.NewPgParlorRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if cfg.AdminUser != "" {
		if cfg.AdminPassword == "" {
			logger.Fatal("admin-user requires admin-password")
		}
		hash, err := board.HashPassword(cfg.AdminPassword)
		if err != nil {
			logger.Fatal("hash admin password:", err)
		}
		if err := dbConn.UpsertAdmin(database.Admin{Username: cfg.AdminUser, PasswordHash: hash}); err != nil {
			logger.Fatal("seed admin:", err)
		}
		logger.Printf("seeded admin account %q", cfg.AdminUser)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	b := board.NewBoard(logger, dbConn, statsUpdater, cfg.SessionTTL, cfg.SweepInterval)

	srv := api.NewParlorApp(mux, logger, b, dbConn, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	b.Sessions.Run()
	defer b.Sessions.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
