// Command welcome-client connects to the configured server address and
// writes the message to every writable characteristic it exposes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/gatt-welcome/internal/ble"
	"github.com/chaz8081/gatt-welcome/internal/cli"
	"github.com/chaz8081/gatt-welcome/internal/handshake"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/gatt-welcome/config.yaml)")
	tracePath := flag.String("trace", "", "append state transitions to this file (overrides trace_path)")
	writeConfig := flag.Bool("write-config", false, "write the default config file and exit")
	flag.Parse()

	if *writeConfig {
		if err := cli.WriteDefaultConfig(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, log, err := cli.Setup(os.Stdout, *configPath, *tracePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}

	rec, closeTrace, err := cli.OpenTrace(cfg.TracePath)
	if err != nil {
		cli.Fatal(log, "cannot open trace", "error", err)
	}

	gw, err := ble.NewSystemGateway()
	if err != nil {
		closeTrace()
		cli.Fatal(log, "bluetooth unavailable", "error", err)
	}

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	log.Info("starting client", "target", cfg.Client.TargetAddress)
	res := handshake.NewClient(gw, cfg, handshake.Options{Logger: log, Recorder: rec}).Run(ctx)
	stop()
	if err := closeTrace(); err != nil {
		log.Warn("closing trace failed", "error", err)
	}

	if res.ExitCode() != handshake.ExitOK {
		cli.Fatal(log, "client failed", "session", res.SessionID, "error", res.Err)
	}
	log.Info("done", "session", res.SessionID, "writes", len(res.Writes), "failed", len(res.FailedWrites()))
}
