package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/accounts/internal/migratecli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := migratecli.New(os.Stdout, os.Stderr).Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
