package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sarigr/uni-schedule-cloud/internal/cli"
)

func main() {
	// Ctrl+C 取消进行中的后端请求
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, cli.Open, os.Args[1:], os.Stdin, os.Stdout)
	if err == nil {
		return
	}
	if errors.Is(err, cli.ErrAborted) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "weekgrid: %v\n", err)
	os.Exit(1)
}
