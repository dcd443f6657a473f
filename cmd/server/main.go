// Command npos-server serves the Niangadou POS REST API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/niangadou-pos/internal/cache"
	"github.com/and161185/niangadou-pos/internal/config"
	"github.com/and161185/niangadou-pos/internal/limiter"
	"github.com/and161185/niangadou-pos/internal/migrate"
	"github.com/and161185/niangadou-pos/internal/repository/postgres"
	"github.com/and161185/niangadou-pos/internal/server/httpserver"
	"github.com/and161185/niangadou-pos/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "useradd" {
		if err := userAdd(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "useradd:", err)
			os.Exit(1)
		}
		return
	}
	serve(os.Args[1:])
}

// serve loads configuration, runs migrations and serves HTTP until SIGINT/SIGTERM.
func serve(args []string) {
	cfg, err := config.Load(flag.NewFlagSet("npos-server", flag.ExitOnError), args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.Bool("requireAuth", cfg.RequireAuth),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applied, err := migrate.Up(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	if v, err := migrate.Version(ctx, cfg.DSN); err == nil {
		logger.Info("schema ready", zap.Int64("version", v), zap.Strings("applied", applied))
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	clientRepo := postgres.NewClientRepo(db)
	productRepo := postgres.NewProductRepo(db)
	saleRepo := postgres.NewSaleRepo(db)

	lim := limiter.NewPG(db.Pool, limiter.Policy{
		Window:   cfg.Login.Window,
		MaxFails: cfg.Login.MaxFails,
		BlockFor: cfg.Login.BlockFor,
	})

	catalogCache := cache.CatalogCache(cache.Nop{})
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, catalog cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			catalogCache = cache.NewRedisCache(rdb, cfg.CacheTTL)
			logger.Info("catalog cache enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	authSvc := service.NewAuthService(userRepo, []byte(cfg.JWTKey), cfg.AccessTTL, lim)
	catalogSvc := service.NewCatalogService(clientRepo, productRepo, catalogCache, logger)
	saleSvc := service.NewSaleService(saleRepo, catalogSvc)
	reportSvc := service.NewReportService(saleRepo)

	api := httpserver.New(authSvc, catalogSvc, saleSvc, reportSvc, db, httpserver.Options{
		SignKey:        []byte(cfg.JWTKey),
		RequireAuth:    cfg.RequireAuth,
		RequestTimeout: cfg.RequestTimeout,
		Location:       loc,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

// userAdd provisions an operator account.
func userAdd(args []string) error {
	fs := flag.NewFlagSet("npos-server useradd", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	fullName := fs.String("name", "", "full name shown in the dashboard")
	password := fs.String("p", "", "password")
	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errors.New("need -u and -p")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := migrate.Up(ctx, cfg.DSN); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	auth := service.NewAuthService(postgres.NewUserRepo(db), []byte(cfg.JWTKey), cfg.AccessTTL, nil)
	id, err := auth.Register(ctx, *username, *fullName, *password)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}
