package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cloudrec/internal/compiler"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load error codes. Schema validation errors keep their own E2xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeNoObjects   = "E007" // No object types declared

	ErrCodeProperties = "E101" // Missing properties block
	ErrCodeProperty   = "E102" // Malformed property declaration
	ErrCodeReferences = "E103" // Malformed references list
)

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult contains a catalog loaded from CUE specs.
type LoadResult struct {
	Catalog   *Catalog
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int
	Warnings  []error
}

// LoadDir loads the CUE package in dir and builds a catalog from its
// object declarations.
func LoadDir(dir string, mode LoadMode, opts ...Option) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	return build(value, len(cueFiles), mode, opts)
}

// LoadFiles compiles each CUE file on its own and unifies the results, so
// the files need not share a package or directory.
func LoadFiles(files []string, mode LoadMode, opts ...Option) (*LoadResult, []error) {
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: "no CUE files given"}}
	}

	ctx := cuecontext.New()
	var value cue.Value
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}}
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: err.Error(), Pos: firstPos(err)}}
		}
		if i == 0 {
			value = v
			continue
		}
		value = value.Unify(v)
	}
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("unifying CUE files: %v", err), Pos: firstPos(err)}}
	}

	return build(value, len(files), mode, opts)
}

// build turns a CUE value into a catalog.
func build(value cue.Value, fileCount int, mode LoadMode, opts []Option) (*LoadResult, []error) {
	result := &LoadResult{
		CUEValue:  value,
		FileCount: fileCount,
	}

	cat, errs := FromCUE(value, opts...)
	if cat == nil {
		converted := make([]error, 0, len(errs))
		for _, err := range errs {
			converted = append(converted, convertError(err))
		}
		if mode == LoadModeFailFast && len(converted) > 1 {
			converted = converted[:1]
		}
		return result, converted
	}

	if cat.Len() == 0 {
		return result, []error{&LoadError{Code: ErrCodeNoObjects, Message: "no object types found in specs"}}
	}

	result.Catalog = cat
	result.Warnings = errs
	return result, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertError maps compile errors to coded LoadErrors. Validation errors
// already carry a code and pass through.
func convertError(err error) error {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: err.Error(),
			Pos:     compileErr.Pos,
		}
	}
	var ve compiler.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "properties":
		return ErrCodeProperties
	case "type":
		return ErrCodeProperty
	case "references":
		return ErrCodeReferences
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}

// ErrorCode returns the code carried by a load or validation error.
func ErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	var ve compiler.ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ErrCodeGeneric
}

func firstPos(err error) token.Pos {
	var cueErr interface{ Position() token.Pos }
	if errors.As(err, &cueErr) {
		return cueErr.Position()
	}
	return token.NoPos
}
