// codymapperd is a demonstration module-mapper helper: it accepts
// connections on a Unix-domain socket, speaks the module-mapper protocol
// over each one via internal/cody/server, and resolves modules against a
// CMI repository directory using resolver.Default.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/modmap/cody/internal/admin"
	"github.com/modmap/cody/internal/config"
	"github.com/modmap/cody/internal/cody/buffer"
	"github.com/modmap/cody/internal/cody/resolver"
	"github.com/modmap/cody/internal/cody/server"
	"github.com/modmap/cody/internal/cody/transport"
	"github.com/modmap/cody/internal/logging"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "cmd/codymapperd/codymapperd.toml", "path to helper config TOML")
	flag.Parse()

	logging.ConfigureRuntime()
	log := logging.Logger()

	cfg, err := config.LoadHelperConfig(configPath)
	if err != nil {
		log.Warn().Err(err).Msg("using built-in defaults, config load failed")
		cfg = config.HelperConfig{
			Socket:    "/tmp/codymapperd.sock",
			RepoDir:   "cmi.cache",
			Ident:     "default",
			CMISuffix: "cmi",
			AdminAddr: ":9400",
		}
	}

	if err := run(cfg, log); err != nil {
		fmt.Fprintf(os.Stderr, "codymapperd: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.HelperConfig, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.RepoDir, 0o755); err != nil {
		return fmt.Errorf("codymapperd: prepare repo dir: %w", err)
	}
	_ = os.Remove(cfg.Socket)

	ln, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		return fmt.Errorf("codymapperd: listen: %w", err)
	}
	defer ln.Close()
	log.Info().Str("socket", cfg.Socket).Str("repo_dir", cfg.RepoDir).Msg("mapper listening")

	sidecar := admin.New("codymapperd", cfg.CorsOrigins)
	adminErr := make(chan error, 1)
	go func() {
		adminErr <- sidecar.Serve(ctx, cfg.AdminAddr)
	}()

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- acceptLoop(ctx, ln, cfg, sidecar, log)
	}()

	select {
	case <-ctx.Done():
		ln.Close()
		<-acceptErr
		return <-adminErr
	case err := <-acceptErr:
		return err
	case err := <-adminErr:
		return err
	}
}

func acceptLoop(ctx context.Context, ln net.Listener, cfg config.HelperConfig, sidecar *admin.Sidecar, log zerolog.Logger) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go handleConn(conn, cfg, sidecar, log)
	}
}

func handleConn(conn net.Conn, cfg config.HelperConfig, sidecar *admin.Sidecar, log zerolog.Logger) {
	defer conn.Close()
	sidecar.SessionOpened()
	defer sidecar.SessionClosed()

	rw := transport.NewNetConn(conn)
	res := &resolver.Default{RepoDir: cfg.RepoDir, Ident: cfg.Ident, Suffix: cfg.CMISuffix}
	srv := server.New(res).WithLogger(log).WithMetrics("codymapperd")

	var in buffer.MessageBuffer
	for {
		result, err := in.Read(rw)
		switch result {
		case buffer.Again, buffer.Interrupted:
			continue
		case buffer.EOFResult:
			return
		case buffer.Ok:
		default:
			log.Warn().Err(err).Str("result", result.String()).Msg("session read failed")
			return
		}

		if err := srv.ParseRequests(&in); err != nil {
			log.Error().Err(err).Msg("dispatch invariant violated, closing session")
			return
		}
		if err := flush(srv, rw); err != nil {
			log.Warn().Err(err).Msg("session write failed")
			return
		}
	}
}

func flush(srv *server.Server, rw transport.NetConn) error {
	for {
		res, err := srv.Out().Write(rw)
		if res == buffer.Ok {
			return nil
		}
		if res != buffer.Again && res != buffer.Interrupted {
			return err
		}
	}
}
