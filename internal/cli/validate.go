package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate specs without writing output",
		Long: `Validate CUE object type declarations.

Reports every schema error at once: missing or mistyped primary keys,
unknown property types, duplicate names and missing object types.
References to undeclared types are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, err := ValidateSpecsDir(specsDir, opts.loadedConfig().CatalogOptions()...)
	if err != nil {
		var loadErr *catalog.LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, catalog.ErrCodeGeneric, err.Error(), nil)
	}

	for _, w := range result.Warnings {
		formatter.VerboseLog("Warning: %v", w)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateSpecsDir validates all specs in a directory. The error is only
// set when the specs could not be read at all.
func ValidateSpecsDir(specsDir string, opts ...catalog.Option) (*ValidationResult, error) {
	loadResult, loadErrors := catalog.LoadDir(specsDir, catalog.LoadModeCollectAll, opts...)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	result := &ValidationResult{}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, toValidationError(err))
	}
	for _, err := range loadResult.Warnings {
		result.Warnings = append(result.Warnings, toValidationError(err))
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}

// toValidationError gives every load problem the validation error shape.
func toValidationError(err error) compiler.ValidationError {
	var ve compiler.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	var loadErr *catalog.LoadError
	if errors.As(err, &loadErr) {
		field := "load"
		if loadErr.Pos.IsValid() {
			field = fmt.Sprintf("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		return compiler.ValidationError{Field: field, Message: loadErr.Message, Code: loadErr.Code}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: catalog.ErrCodeGeneric}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "\u2713 All specs valid")
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning %s\n", w.Error())
	}
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Unreadable specs are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "\u2717 Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n\n", err.Error())
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning %s\n", w.Error())
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
