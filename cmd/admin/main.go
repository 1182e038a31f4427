package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/audit"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/authz"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/auth"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/cache"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/config"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/database"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/logger"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/server"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/identity"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/repo"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/handler"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}

	store := repo.NewStore(db)
	rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	ids := identity.NewStore(store.Users(), rc)
	az := authz.NewEngine(ids, authz.DefaultRules(), store.Audit(), log)
	trail := audit.New(store.Audit(), log)

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	deps := router.Deps{Log: log, Store: store, JWT: jwter, Authz: az}
	adminH := handler.NewAdminHandler(store, az, ids, trail, log)
	r := router.NewAdminEngine(deps, adminH)

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 10*time.Second, 15*time.Second, 60*time.Second)

	log.Info("admin api starting", zap.String("addr", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("admin api stopped gracefully")
}
