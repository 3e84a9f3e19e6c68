package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rcourtman/proxmox-mcp/internal/actions"
	"github.com/rcourtman/proxmox-mcp/internal/config"
	"github.com/rcourtman/proxmox-mcp/internal/logging"
	"github.com/rcourtman/proxmox-mcp/internal/safety"
	"github.com/rcourtman/proxmox-mcp/internal/tools"
	"github.com/rcourtman/proxmox-mcp/pkg/proxmox"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	flagAllowDangerous bool
	flagTransport      string
	flagListenHost     string
	flagPort           int
	flagLogLevel       string
	flagLogFormat      string
)

var rootCmd = &cobra.Command{
	Use:     "proxmox-mcp",
	Short:   "MCP server exposing a Proxmox VE cluster as agent tools",
	Long:    `proxmox-mcp serves Model Context Protocol tools for inspecting and managing QEMU VMs and LXC containers on a Proxmox Virtual Environment cluster. Destructive operations are refused unless dangerous mode is enabled at startup.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("proxmox-mcp %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.Flags().BoolVar(&flagAllowDangerous, "allow-dangerous", false,
		"permit destructive operations (delete, rollback, clone, migrate, restore); overrides PROXMOX_ALLOW_DANGEROUS")
	rootCmd.Flags().StringVar(&flagTransport, "transport", "", "transport to serve on: stdio or sse (default from TRANSPORT env)")
	rootCmd.Flags().StringVar(&flagListenHost, "host", "", "listen address for the sse transport (default from HOST env)")
	rootCmd.Flags().IntVar(&flagPort, "port", 0, "listen port for the sse transport (default from PORT env)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&flagLogFormat, "log-format", "", "log format: console, json or auto")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flag overrides
	if flagTransport != "" {
		cfg.Transport = flagTransport
	}
	if flagListenHost != "" {
		cfg.ListenHost = flagListenHost
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "proxmox-mcp",
	})

	if err := cfg.Validate(); err != nil {
		return err
	}

	// The gate is resolved exactly once; changing it requires a restart
	gate := safety.Resolve(cmd.Flags().Changed("allow-dangerous"), flagAllowDangerous, cfg.AllowDangerousEnv)
	if gate.Enabled() {
		log.Warn().Msg("Dangerous mode is ENABLED: destructive operations are permitted")
	} else {
		log.Info().Msg("Dangerous mode is disabled: destructive operations will be refused")
	}

	client, err := proxmox.NewClient(proxmox.ClientConfig{
		Host:        cfg.Host,
		User:        cfg.User,
		Password:    cfg.Password,
		TokenName:   cfg.TokenName,
		TokenValue:  cfg.TokenValue,
		Fingerprint: cfg.Fingerprint,
		VerifySSL:   cfg.VerifySSL,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create Proxmox client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Fail fast on an unreachable cluster or bad credentials before serving
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	version, err := client.GetVersion(checkCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to Proxmox at %s: %w", cfg.Host, err)
	}
	log.Info().
		Str("host", cfg.Host).
		Str("version", version.Version).
		Str("user", client.AuthUser()).
		Msg("Connected to Proxmox")

	dispatcher := actions.NewDispatcher(client, gate)
	registry := tools.NewRegistry(client, dispatcher)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "proxmox-mcp",
		Title:   "Proxmox VE",
		Version: Version,
	}, nil)
	registry.Register(server)

	switch cfg.Transport {
	case "stdio":
		log.Info().Msg("Starting MCP server on stdio transport")
		return server.Run(ctx, &mcp.StdioTransport{})
	default:
		return serveSSE(ctx, server, cfg)
	}
}

// sseMux routes MCP traffic to the SSE handler and exposes Prometheus metrics.
func sseMux(server *mcp.Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func serveSSE(ctx context.Context, server *mcp.Server, cfg *config.Config) error {
	addr := fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.Port)

	srv := &http.Server{
		Addr:        addr,
		Handler:     sseMux(server),
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("Failed to shut down server cleanly")
		}
	}()

	log.Info().Str("addr", addr).Msg("Starting MCP server on SSE transport")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
