package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/cloudrec/internal/asset"
	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/harness"
	"github.com/roach88/cloudrec/internal/object"
	"github.com/roach88/cloudrec/internal/store"
)

// ImportResult summarizes an import.
type ImportResult struct {
	Imported int            `json:"imported"`
	Assets   int            `json:"assets"`
	PerType  map[string]int `json:"per_type"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <specs-dir> <objects.yaml>",
		Short: "Import objects into the local store",
		Long: `Import declared objects into the local SQLite store.

The objects file uses the scenario objects format: a list of
{type, id, values} entries where values may hold {ref: Type/key},
{date: ...}, {data: base64} or {asset: content}. Asset content is written
to the configured asset directory. Re-importing an object replaces it.

Example:
  cloudrec import ./specs ./objects.yaml --db ./cloudrec.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runImport(opts *RootOptions, specsDir, objectsFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cat, err := loadCatalog(opts, formatter, specsDir)
	if err != nil {
		return err
	}

	decls, err := harness.LoadObjects(objectsFile)
	if err != nil {
		_ = formatter.Error(catalog.ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load objects", err)
	}

	assets, err := asset.NewStore(opts.loadedConfig().AssetDir)
	if err != nil {
		_ = formatter.Error(catalog.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open asset directory", err)
	}

	objs, err := harness.BuildObjects(cat, decls, assets)
	if err != nil {
		_ = formatter.Error(catalog.ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build objects", err)
	}

	st, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := importObjects(ctx, st, cat, objs)
	if err != nil {
		_ = formatter.Error(catalog.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "import failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "\u2713 Imported %d object(s), %d asset(s)\n", result.Imported, result.Assets)
	for _, name := range cat.Names() {
		if n := result.PerType[name]; n > 0 {
			fmt.Fprintf(formatter.Writer, "  %s: %d\n", name, n)
		}
	}
	return nil
}

// importObjects writes every object and the assets they hold.
func importObjects(ctx context.Context, st *store.Store, cat *catalog.Catalog, objs []*object.Dynamic) (*ImportResult, error) {
	result := &ImportResult{PerType: make(map[string]int)}
	seen := make(map[string]bool)

	for i, obj := range objs {
		if err := st.PutObject(ctx, cat, obj); err != nil {
			return nil, fmt.Errorf("objects[%d]: %w", i, err)
		}
		result.Imported++
		result.PerType[obj.ObjectType()]++

		for _, name := range obj.Properties() {
			v, _ := obj.Get(name)
			a, ok := v.(*object.Asset)
			if !ok || a == nil || seen[a.Ref().Checksum] {
				continue
			}
			if err := st.PutAsset(ctx, a.Ref()); err != nil {
				return nil, fmt.Errorf("objects[%d]: %w", i, err)
			}
			seen[a.Ref().Checksum] = true
			result.Assets++
		}
	}

	slog.Info("import finished", "objects", result.Imported, "assets", result.Assets)
	return result, nil
}
