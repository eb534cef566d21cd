package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/config"
	"github.com/roach88/cloudrec/internal/mapper"
	"github.com/roach88/cloudrec/internal/store"
)

// config returns the loaded configuration, falling back to defaults when a
// subcommand runs on its own.
func (o *RootOptions) loadedConfig() *config.Config {
	if o.Config == nil {
		cfg := config.Default()
		if o.Database != "" {
			cfg.Database = o.Database
		}
		o.Config = &cfg
	}
	return o.Config
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadCatalog loads the specs in dir fail-fast and reports a failure
// through the formatter. Warnings are logged.
func loadCatalog(opts *RootOptions, formatter *OutputFormatter, specsDir string) (*catalog.Catalog, error) {
	loadResult, loadErrors := catalog.LoadDir(specsDir, catalog.LoadModeFailFast, opts.loadedConfig().CatalogOptions()...)
	if len(loadErrors) > 0 {
		code := catalog.ErrorCode(loadErrors[0])
		_ = formatter.Error(code, loadErrors[0].Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load specs", loadErrors[0])
	}

	formatter.VerboseLog("Loaded %d object type(s) from %d CUE file(s) in %s",
		loadResult.Catalog.Len(), loadResult.FileCount, specsDir)
	for _, w := range loadResult.Warnings {
		slog.Warn("spec warning", "error", w)
	}
	return loadResult.Catalog, nil
}

// newMapper builds a mapper with the configured owner and policies.
func newMapper(opts *RootOptions, formatter *OutputFormatter, cat *catalog.Catalog) (*mapper.Mapper, error) {
	cfg := opts.loadedConfig()
	mapperOpts, err := cfg.MapperOptions()
	if err != nil {
		_ = formatter.Error(catalog.ErrCodeGeneric, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid mapper options", err)
	}
	return mapper.New(cat, cfg.Owner, mapperOpts...), nil
}

// openStore opens the configured database, creating it if needed.
func openStore(opts *RootOptions, formatter *OutputFormatter) (*store.Store, error) {
	path := opts.loadedConfig().Database
	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(catalog.ErrCodeNotFound, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// closeStore closes st and logs a failure.
func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// reportDefect outputs a configuration defect and returns the matching exit
// error. Errors that are not defects are returned unchanged.
func reportDefect(formatter *OutputFormatter, err error) error {
	d, ok := mapper.AsDefect(err)
	if !ok {
		return err
	}
	_ = formatter.Error(string(d.Code), d.Error(), map[string]string{"record_type": d.RecordType})
	return WrapExitError(ExitDefect, "configuration defect", d)
}

// isUnknownType reports whether err names an unregistered object type.
func isUnknownType(err error) bool {
	return errors.Is(err, catalog.ErrUnknownType)
}
