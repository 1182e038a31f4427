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
	"gorm.io/gorm"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/authz"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/auth"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/cache"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/config"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/database"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/logger"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/server"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/doi"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/identity"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/outbound"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/repo"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/handler"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/router"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/workflow"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	store := repo.NewStore(db)
	rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	ids := identity.NewStore(store.Users(), rc)
	az := authz.NewEngine(ids, authz.DefaultRules(), store.Audit(), log)
	alloc := doi.NewAllocator(cfg.DOI.Org, cfg.DOI.Dept)

	// 外部协作者信号：提交后触发、从不回滚流转
	var mailer *outbound.Mailer
	if cfg.SMTP.Host != "" {
		mailer = outbound.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)
	}
	hooks := &outbound.Hooks{
		Search:   outbound.NewSearchSync(rc.RDB, cfg.Search.Queue, log),
		Notifier: outbound.NewNotifier(mailer, store.Notifications(), store.Users(), log),
		Backup:   outbound.NewBackupTrigger(nil, store.Papers(), log), // client 由部署方注入
	}

	wf := workflow.NewEngine(store, az, alloc, hooks, log)

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	deps := router.Deps{
		Log:   log,
		Store: store,
		JWT:   jwter,
		Authz: az,
		Paper: handler.NewPaperHandler(wf, store.Papers()),
	}
	r := router.NewAPIEngine(deps)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	log.Info("api starting", zap.String("addr", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
