// Command picosockd is a small line-echo server demonstrating the picosock
// bridge end to end: it accepts TCP connections, echoes each line back,
// and optionally gates acceptance behind a version constraint and exposes
// a diagnostics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivxnet/picosock/internal/diag"
	"github.com/ivxnet/picosock/internal/picosock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "picosockd:", err)
		os.Exit(1)
	}
}

func run() error {
	deviceAddr := flag.String("device", "127.0.0.1:9000", "local UDP device address")
	port := flag.Uint("port", 9000, "logical TCP port to listen on")
	buildVersion := flag.String("version", "1.0.0", "this build's semver version")
	versionConstraint := flag.String("require-version", "", "semver constraint gating the listen port, e.g. \">=1.0.0\"")
	diagAddr := flag.String("diag", "", "if set, address for the HTTP/3 diagnostics endpoint")
	flag.Parse()

	cfg := picosock.DefaultConfig()
	cfg.DeviceAddr = *deviceAddr

	stack, err := picosock.New(cfg)
	if err != nil {
		return fmt.Errorf("create stack: %w", err)
	}

	gated := *versionConstraint != ""
	if gated {
		gate, err := picosock.VersionGate(*buildVersion, map[uint16]string{uint16(*port): *versionConstraint})
		if err != nil {
			return fmt.Errorf("version gate: %w", err)
		}
		// The accept hook short-circuits the listener-based accept path
		// entirely (spec.md §4.5), so a hook-accepted connection has to be
		// handed off to its handler right here rather than flowing through
		// server.Accept() below.
		picosock.SetAcceptHook(func(sk *picosock.Socket, localPort uint16) error {
			if err := gate(sk, localPort); err != nil {
				return err
			}
			go echoLines(sk)
			return nil
		})
	}

	stack.Start()
	defer stack.Stop()

	server, err := stack.NewTCPServer(uint16(*port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", *port, err)
	}

	if *diagAddr != "" {
		d, err := diag.New(stack, *diagAddr)
		if err != nil {
			return fmt.Errorf("diag server: %w", err)
		}
		addr, err := d.Start()
		if err != nil {
			return fmt.Errorf("start diag server: %w", err)
		}
		defer d.Stop()
		picosock.LogDefault().Printf("diagnostics listening on %s", addr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !gated {
		go serveEcho(ctx, server)
	}

	picosock.LogDefault().Printf("listening on logical port %d (device %s)", *port, stack.LocalAddr())
	<-ctx.Done()
	return nil
}

func serveEcho(ctx context.Context, server *picosock.Socket) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn, err := server.Accept()
		if err != nil {
			picosock.LogDefault().Printf("accept: %v", err)
			return
		}
		go echoLines(conn)
	}
}

func echoLines(conn *picosock.Socket) {
	defer conn.Close()
	buf := make([]byte, 512)
	for {
		n := conn.ReadLine(buf)
		if n < 0 {
			return
		}
		if w := conn.Write(buf[:n]); w < 0 {
			return
		}
	}
}
