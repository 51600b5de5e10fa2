// Command welcome-server finds a peripheral exposing the welcome
// characteristic, subscribes to it and waits for the expected message.
//
// Exit status is 0 when the message arrives, 2 on timeout and 1 on error.
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

const usage = `Usage: welcome-server [flags] <adapter-address>

  adapter-address   MAC address of the local Bluetooth adapter, e.g. 00:11:22:33:44:55

Flags:
`

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/gatt-welcome/config.yaml)")
	tracePath := flag.String("trace", "", "append state transitions to this file (overrides trace_path)")
	writeConfig := flag.Bool("write-config", false, "write the default config file and exit")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *writeConfig {
		if err := cli.WriteDefaultConfig(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(handshake.ExitFailure)
	}
	adapterAddr := flag.Arg(0)

	cfg, log, err := cli.Setup(os.Stdout, *configPath, *tracePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(handshake.ExitFailure)
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

	log.Info("starting server", "adapter", adapterAddr, "timeout", cfg.Server.WaitTimeout)
	res := handshake.NewServer(gw, cfg, handshake.Options{Logger: log, Recorder: rec}).Run(ctx, adapterAddr)
	stop()
	if err := closeTrace(); err != nil {
		log.Warn("closing trace failed", "error", err)
	}

	switch res.ExitCode() {
	case handshake.ExitFailure:
		cli.Fatal(log, "server failed", "session", res.SessionID, "error", res.Err)
	case handshake.ExitTimeout:
		os.Exit(handshake.ExitTimeout)
	}
	log.Info("done", "session", res.SessionID, "peer", res.Peer.Address)
}
