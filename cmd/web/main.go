// Command web serves the browsing and data-entry front end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"moviedw/internal/config"
	"moviedw/internal/logger"
	"moviedw/internal/web"
)

func main() {
	os.Exit(runMain(os.Args[1:], os.Stderr))
}

func runMain(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "config file (YAML or JSON); defaults to CONFIG_PATH")
	addr := fs.String("addr", "", "listen address (overrides web.addr)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*cfgPath, func(c *config.Config) {
		if *addr != "" {
			c.Web.Addr = *addr
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	z, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	defer func() { _ = z.Sync() }()
	kl := logger.Kratos(z)
	helper := log.NewHelper(kl)

	db, err := web.OpenDB(cfg.Warehouse.Kind, cfg.DSN())
	if err != nil {
		fmt.Fprintf(stderr, "web: %v\n", err)
		return 1
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	rdb := openRedis(cfg.Web.RedisAddr, helper)
	if rdb != nil {
		defer rdb.Close()
	}

	srv := web.NewServer(web.NewStore(db), web.Options{
		Addr:    cfg.Web.Addr,
		Timeout: cfg.Web.Timeout,
		Cache:   web.NewCache(rdb, cfg.Web.CacheTTL, kl),
		Logger:  kl,
	})

	app := kratos.New(
		kratos.Name("moviedw-web"),
		kratos.Logger(kl),
		kratos.Server(srv),
	)
	helper.Infof("listening addr=%s warehouse=%s", cfg.Web.Addr, cfg.Warehouse.Kind)
	if err := app.Run(); err != nil {
		helper.Errorf("web: %v", err)
		return 1
	}
	return 0
}

// openRedis returns a connected client, or nil when addr is empty or the
// server does not answer. The front end works without a cache.
func openRedis(addr string, l *log.Helper) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		l.Warnf("redis unavailable addr=%s: %v; caching disabled", addr, err)
		_ = rdb.Close()
		return nil
	}
	l.Infof("redis connected addr=%s", addr)
	return rdb
}
