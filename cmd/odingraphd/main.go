package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/odingraph/odingraph/internal/config"
	"github.com/odingraph/odingraph/internal/query"
	"github.com/odingraph/odingraph/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("odingraphd starting (env=%s, store=%s)\n", cfg.Env, cfg.Store.Driver)

	notifier := store.NewNotifier()
	driver, err := newDriver(cfg.Store.Driver, notifier)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build store driver: %v\n", err)
		os.Exit(1)
	}
	defer driver.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := driver.CreateTables(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create tables: %v\n", err)
		os.Exit(1)
	}

	idx := query.NewDestroyIndex(nil)
	_ = query.NewProcessor(driver, idx)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		_ = store.NewWarmCache(store.RedisAdapter{Client: client}, cfg.Redis.TTL())
		fmt.Printf("warm cache enabled (redis=%s, ttl=%s)\n", cfg.Redis.Addr, cfg.Redis.TTL())
	}

	fmt.Println("odingraphd ready")

	<-ctx.Done()
	fmt.Println("odingraphd shutting down")
}

// newDriver selects the store.Driver implementation named by driverName,
// wiring notifier so every Put fans out to subscribers. Only "memory" is
// implemented today; anything else is rejected at startup rather than
// silently falling back.
func newDriver(driverName string, notifier *store.Notifier) (store.Driver, error) {
	switch driverName {
	case "", "memory":
		return store.NewMemDriverWithNotifier(notifier), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driverName)
	}
}
