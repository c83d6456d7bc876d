package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"

	"github.com/odingraph/odingraph/internal/config"
	"github.com/odingraph/odingraph/internal/signer"
)

func main() {
	defer memguard.Purge()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("odingraph-signer starting (env=%s)\n", cfg.Env)

	ttl := time.Duration(cfg.Signer.SessionTTLSec) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	session := signer.NewSessionManager(ttl)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("odingraph-signer ready — no session active until Activate is called in-process")

	<-ctx.Done()
	fmt.Println("odingraph-signer shutting down")
	session.Destroy()
}
