// invmon is an inventory monitoring backend: device RAM telemetry, supplier
// ratings, inventory and documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/vesaa/invmon/internal/agent"
	"github.com/vesaa/invmon/internal/config"
	"github.com/vesaa/invmon/internal/importer"
	"github.com/vesaa/invmon/internal/server"
	"github.com/vesaa/invmon/internal/store"
	"github.com/vesaa/invmon/internal/telemetry"
)

const version = "v0.1.0"

func printBanner(mode string) {
	fmt.Printf("\n  ► invmon %s  |  Mode: %s\n\n", version, mode)
}

func main() {
	root := &cobra.Command{
		Use:   "invmon",
		Short: "invmon: inventory monitoring backend",
		Long: `invmon tracks per-device RAM usage as daily performance ranks, rates
suppliers from delivery feedback, and serves the inventory REST API.`,
		SilenceUsage: true,
	}

	// ── server subcommand ─────────────────────────────────────────────────────
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the REST API and the local telemetry timer",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("SERVER")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			sampler, err := newSampler(cfg)
			if err != nil {
				return err
			}
			svc := telemetry.NewService(store.NewTelemetryStore(db), sampler)

			srv, err := server.New(cfg, db, svc)
			if err != nil {
				return fmt.Errorf("building server: %w", err)
			}
			gin.SetMode(gin.ReleaseMode)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go svc.Run(ctx, cfg.SampleInterval())

			addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.Port)
			fmt.Printf("  ✓ API     → http://%s/api/v1\n", addr)
			fmt.Printf("  ✓ Metrics → http://%s/metrics\n", addr)
			fmt.Printf("  ✓ Device  → %s (every %s)\n\n", sampler.ProductID, cfg.SampleInterval())

			httpSrv := &http.Server{Addr: addr, Handler: srv.Engine()}
			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.ListenAndServe() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				fmt.Println("\n  → Shutting down gracefully…")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			}
		},
	}

	// ── agent subcommand ──────────────────────────────────────────────────────
	agentCmd := &cobra.Command{
		Use:   "agent",
		Short: "Sample this host and push daily reports to a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("AGENT")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			// CLI flags override config values.
			if join, _ := cmd.Flags().GetString("join"); join != "" {
				if !containsPort(join) {
					join = fmt.Sprintf("%s:%d", join, cfg.Port)
				}
				cfg.AgentJoinAddr = join
			}
			if token, _ := cmd.Flags().GetString("token"); token != "" {
				cfg.AgentToken = token
			}

			sampler, err := newSampler(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("  ✓ Joining server:  %s\n", cfg.AgentJoinAddr)
			fmt.Printf("  ✓ Device:          %s\n", sampler.ProductID)
			fmt.Printf("  ✓ Report interval: %s\n\n", cfg.SampleInterval())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return agent.Run(ctx, agent.NewClient(cfg.AgentJoinAddr, cfg.AgentToken), sampler, cfg.SampleInterval())
		},
	}
	agentCmd.Flags().String("join", "", "Server address, e.g. 192.168.1.1 or 192.168.1.1:7050")
	agentCmd.Flags().String("token", "", "Pre-shared agent token (overrides config)")

	// ── import subcommand ─────────────────────────────────────────────────────
	importCmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Bulk-import inventory items from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			items, err := importer.Parse(f)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			if err := importer.Import(cmd.Context(), db, items); err != nil {
				return err
			}
			fmt.Printf("  ✓ Imported %d items from %s\n", len(items), args[0])
			return nil
		},
	}

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print invmon version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("invmon %s\n", version)
		},
	}

	root.AddCommand(serverCmd, agentCmd, importCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newSampler builds the local host sampler from config.
func newSampler(cfg *config.Config) (*telemetry.Sampler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	productID := cfg.DeviceID
	if productID == "" {
		if productID, err = telemetry.HostProductID(); err != nil {
			return nil, fmt.Errorf("resolving device id (set device_id to override): %w", err)
		}
	}
	memory := telemetry.HostMemory{}
	board := telemetry.DMIBoard{Root: cfg.DMIPath, Memory: memory}
	return telemetry.NewSampler(productID, cfg.DeviceCost, telemetry.NewRAMMeter(memory), board,
		telemetry.WithLocation(loc)), nil
}

// containsPort checks whether addr already has a port suffix.
func containsPort(addr string) bool {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return true
		}
		if addr[i] == '/' {
			break
		}
	}
	return false
}
