package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/mamtil/speak/internal/proxy"
	"github.com/mamtil/speak/internal/tts/engines"
	"github.com/spf13/cobra"
)

var (
	envFiles  []string
	serveAddr string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run a token proxy in front of the remote speech service",
		Long: paragraph(fmt.Sprintf("\n%s the remote speech service behind a local proxy. The proxy holds the service token, so clients only need the proxy address.\n\nSettings come from SPEAK_* environment variables and .env files, falling back to the remote section of the config file.", keyword("Serve"))),
		Example: paragraph("speak serve\nspeak serve --addr 127.0.0.1:9000 --env-file prod.env\nSPEAK_UPSTREAM_TOKEN=... speak serve"),
		Args:    cobra.NoArgs,
		RunE:    runServe,
	}
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := proxy.LoadConfig(envFiles...)
	if err != nil {
		return err
	}
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = speechConfig.Remote.Endpoint
	}
	if cfg.UpstreamToken == "" {
		cfg.UpstreamToken = speechConfig.Remote.Token
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid proxy configuration: %w", err)
	}

	// The proxy is long running: log to the terminal, not the log file.
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "speak",
	})

	rc := engines.RemoteConfig{
		Endpoint: cfg.UpstreamURL,
		Token:    cfg.UpstreamToken,
		Timeout:  cfg.Timeout,
	}
	if speechConfig.Remote.Cache.Enabled {
		m, err := newCacheManager(speechConfig.Remote.Cache)
		if err != nil {
			logger.Warn("Audio cache disabled", "error", err)
		} else {
			defer m.Close() //nolint:errcheck
			rc.Cache = m
		}
	}

	upstream, err := engines.NewRemote(rc, logger)
	if err != nil {
		return err
	}
	srv, err := proxy.NewServer(cfg, upstream, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Listen(ctx); err != nil {
		return fmt.Errorf("proxy stopped: %w", err)
	}
	return nil
}

func init() {
	serveCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "load environment from these files (default .env)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}
