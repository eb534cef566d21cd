package mapper

import (
	"errors"
	"fmt"
)

// DefectCode classifies a configuration defect.
type DefectCode string

const (
	// DefectNoSchema: the object's type has no registered schema.
	DefectNoSchema DefectCode = "no_schema"
	// DefectNoPrimaryKey: the schema declares no primary key property.
	DefectNoPrimaryKey DefectCode = "no_primary_key"
	// DefectPrimaryKeyType: the primary key is neither a string nor an integer.
	DefectPrimaryKeyType DefectCode = "primary_key_type"
)

// DefectError reports a configuration defect: a broken precondition in the
// application's object model rather than a property of the data. A program
// that hits one cannot produce a correct record for the object and should
// stop; the Must variants panic with it.
type DefectError struct {
	Code       DefectCode
	RecordType string
	Message    string
}

func (e *DefectError) Error() string {
	if e.RecordType == "" {
		return fmt.Sprintf("configuration defect (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("configuration defect (%s) in %s: %s", e.Code, e.RecordType, e.Message)
}

// IsDefect reports whether err is or wraps a *DefectError.
func IsDefect(err error) bool {
	var d *DefectError
	return errors.As(err, &d)
}

// AsDefect returns the *DefectError in err's chain, if any.
func AsDefect(err error) (*DefectError, bool) {
	var d *DefectError
	ok := errors.As(err, &d)
	return d, ok
}

func defect(code DefectCode, recordType, format string, args ...any) *DefectError {
	return &DefectError{
		Code:       code,
		RecordType: recordType,
		Message:    fmt.Sprintf(format, args...),
	}
}
