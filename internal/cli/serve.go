package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cloudrec/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <specs-dir>",
		Short: "Serve a read-only JSON preview of records",
		Long: `Serve schemas, zones, converted records and export snapshots over HTTP.

Routes:
  GET /healthz
  GET /schemas
  GET /schemas/{type}
  GET /zones/{type}
  GET /records/{type}
  GET /records/{type}/{key}
  GET /exports/{type}

Example:
  cloudrec serve ./specs --listen 127.0.0.1:8089`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cat, err := loadCatalog(opts.RootOptions, formatter, specsDir)
	if err != nil {
		return err
	}
	m, err := newMapper(opts.RootOptions, formatter, cat)
	if err != nil {
		return err
	}

	st, err := openStore(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer closeStore(st)

	addr := opts.Listen
	if addr == "" {
		addr = opts.loadedConfig().Listen
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(formatter.GetErrWriter(), "Serving %d object type(s) on http://%s\n", cat.Len(), addr)

	if err := api.Serve(ctx, addr, api.NewRouter(api.NewHandler(st, m))); err != nil {
		return WrapExitError(ExitCommandError, "server error", err)
	}
	return nil
}
