package main

import (
	"context"
	"os"

	"ipdrop/internal/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	code := cli.Main(ctx, os.Args[1:], cli.Env{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})

	cancel()
	os.Exit(code)
}
