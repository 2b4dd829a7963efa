package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/shiftsync/internal/client/cli"
	"github.com/iudanet/shiftsync/internal/client/iocli"
	"github.com/iudanet/shiftsync/internal/client/state"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "shiftsync-client.db", "Path to local mirror database")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	if err := run(args, *serverURL, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, serverURL, dbPath string) error {
	// Ctrl+C отменяет контекст; watch на этом завершается штатно
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mirror, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open local mirror: %w", err)
	}
	defer func() {
		if err := mirror.Close(); err != nil {
			slog.Error("failed to close local mirror", "error", err)
		}
	}()

	io := iocli.NewStdio()

	switch command := args[0]; command {
	case "sync":
		return cli.RunSync(ctx, io, serverURL, mirror)
	case "list":
		return cli.RunList(io, mirror, args[1:])
	case "get":
		return cli.RunGet(io, mirror, args[1:])
	case "create":
		return cli.RunCreate(ctx, io, serverURL, mirror, args[1:])
	case "update":
		return cli.RunUpdate(ctx, io, serverURL, mirror, args[1:])
	case "delete":
		return cli.RunDelete(ctx, io, serverURL, mirror, args[1:])
	case "watch":
		return cli.RunWatch(ctx, io, serverURL, mirror, args[1:])
	case "violations":
		return cli.RunViolations(io, mirror, args[1:])
	default:
		cli.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printVersion() {
	fmt.Printf("ShiftSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
