package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-gridpool/internal/httpapi"
	"github.com/goliatone/go-gridpool/pkg/config"
	"github.com/goliatone/go-gridpool/pkg/di"
	"github.com/goliatone/go-gridpool/pool"
)

func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "gridpool",
		Short:         "gridpool - data grid client pool lifecycle manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gridpool v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
		},
	})
	root.AddCommand(newCheckCommand())
	root.AddCommand(newServeCommand())

	return root
}

func newCheckCommand() *cobra.Command {
	var configFile string
	var timeout time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve every configured pool, report it and release it",
		Long: `Resolve every configured pool, print a summary of each one and release
the pools created by this run. Pools that already exist are reported as
discovered and left untouched.

Example:
  gridpool check -c gridpool.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, timeout, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the YAML configuration file (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Time allowed to resolve and inspect every pool")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print snapshots as JSON")

	return cmd
}

func runCheck(ctx context.Context, out io.Writer, cfg config.Config, timeout time.Duration, asJSON bool, opts ...di.Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	container, err := di.NewContainerFromConfig(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		_ = container.Close(context.Background())
	}()

	resolveErr := container.ResolveAll(ctx)

	snapshots, err := container.Snapshots(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshots); err != nil {
			return err
		}
	} else {
		printSnapshots(out, snapshots)
	}

	if resolveErr != nil {
		return goerrors.Wrap(resolveErr, goerrors.CategoryCommand, "one or more pools failed to resolve")
	}
	return nil
}

func printSnapshots(out io.Writer, snapshots []pool.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tMANAGED\tLOCATORS\tSERVERS\tONLINE\tERROR")
	for _, s := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\t%s\n",
			s.Name,
			s.State,
			s.Managed,
			joinOrDash(pool.EndpointStrings(s.Settings.Locators)),
			joinOrDash(pool.EndpointStrings(s.Settings.Servers)),
			joinOrDash(pool.EndpointStrings(s.Online)),
			orDash(s.Error),
		)
	}
	_ = w.Flush()
}

func joinOrDash(values []string) string {
	return orDash(strings.Join(values, ","))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newServeCommand() *cobra.Command {
	var configFile string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pool introspection API",
		Long: `Declare every configured pool and serve the HTTP API until SIGINT or
SIGTERM. Pools are resolved on demand; on shutdown every pool created by
this process is released.

Example:
  gridpool serve -c gridpool.yaml --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the YAML configuration file (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides http.addr")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, opts ...di.Option) error {
	container, err := di.NewContainerFromConfig(cfg, opts...)
	if err != nil {
		return err
	}
	logger := container.Logger()
	defer func() {
		if err := container.Close(context.Background()); err != nil {
			logger.Warn("failed to close container", zap.Error(err))
		}
		_ = logger.Sync()
	}()

	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to listen").
			WithMetadata(map[string]any{"addr": cfg.HTTP.Addr})
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(container,
		httpapi.WithLogger(logger),
		httpapi.WithGatherer(container.Gatherer()),
	)
	return httpapi.Serve(ctx, listener, router, cfg.HTTP.ShutdownTimeout, logger)
}
