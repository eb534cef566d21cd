package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/compiler"
	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/mapper"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled catalog.
type CompilationResult struct {
	SchemaHash string            `json:"schema_hash"`
	AssetType  string            `json:"asset_type"`
	Schemas    []ir.ObjectSchema `json:"schemas"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	TypeCount      int
	PropertyCount  int
	ReferenceCount int
	UnknownCount   int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE object specs to a schema catalog",
		Long: `Compile CUE object type declarations to a schema catalog.

Every property is assigned its conversion category (scalar, asset,
single_reference, multi_reference or unknown) and the catalog is hashed
so exports can record which schema produced them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := catalog.LoadDir(specsDir, catalog.LoadModeCollectAll, opts.loadedConfig().CatalogOptions()...)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *catalog.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, catalog.ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	cat := loadResult.Catalog
	for _, w := range loadResult.Warnings {
		formatter.VerboseLog("Warning: %v", w)
	}

	hash, err := cat.Hash()
	if err != nil {
		return outputCompileError(formatter, catalog.ErrCodeGeneric, err.Error(), nil)
	}

	result := &CompilationResult{
		SchemaHash: hash,
		AssetType:  cat.AssetType(),
		Schemas:    make([]ir.ObjectSchema, 0, cat.Len()),
	}
	for _, name := range cat.Names() {
		s, _ := cat.Lookup(name)
		formatter.VerboseLog("Compiled object type: %s", name)
		result.Schemas = append(result.Schemas, s.Clone())
	}

	stats := calculateStats(result)

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeCatalogToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, stats, opts.Output, opts.loadedConfig().Owner)
}

// ErrCodeWriteFailed reports a failure to write the --output file.
const ErrCodeWriteFailed = "E008"

// calculateStats computes summary statistics from a compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{TypeCount: len(result.Schemas)}

	for _, s := range result.Schemas {
		stats.PropertyCount += len(s.Properties)
		for _, p := range s.Properties {
			switch p.Category {
			case ir.CategorySingleReference, ir.CategoryMultiReference:
				stats.ReferenceCount++
			case ir.CategoryUnknown:
				stats.UnknownCount++
			}
		}
	}

	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile, owner string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "\u2713 Compiled %d object type(s), %d propert(ies)\n\n",
		stats.TypeCount, stats.PropertyCount)

	fmt.Fprintln(w, "Object types:")
	for _, s := range result.Schemas {
		fmt.Fprintf(w, "  %s: key %s, zone %s\n", s.Name, s.PrimaryKey, mapper.ZoneFor(s.Name, owner).Name)
		for _, p := range s.Properties {
			if p.ObjectType != "" {
				fmt.Fprintf(w, "    %s %s<%s> (%s)\n", p.Name, p.Type, p.ObjectType, p.Category)
				continue
			}
			fmt.Fprintf(w, "    %s %s (%s)\n", p.Name, p.Type, p.Category)
		}
	}
	fmt.Fprintln(w)

	if stats.UnknownCount > 0 {
		fmt.Fprintf(w, "%d propert(ies) will never convert (category unknown)\n", stats.UnknownCount)
	}
	fmt.Fprintf(w, "Schema hash: %s\n", result.SchemaHash)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote catalog to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "\u2717 Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *catalog.LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *catalog.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var ve compiler.ValidationError
	if errors.As(err, &ve) {
		return ve.Code, ve.Error()
	}
	return catalog.ErrCodeGeneric, err.Error()
}

// writeCatalogToFile writes the compilation result to a file as indented JSON.
func writeCatalogToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
