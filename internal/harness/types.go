package harness

import (
	"github.com/roach88/cloudrec/internal/export"
	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/mapper"
)

// RecordResult is one converted object.
type RecordResult struct {
	Target string     `json:"target"`
	Record *ir.Record `json:"record"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Records holds the converted records in conversion order.
	Records []RecordResult `json:"records"`

	// Defects maps objects whose conversion reported a configuration
	// defect to the defect.
	Defects map[string]*mapper.DefectError `json:"defects,omitempty"`

	// Export is the export batch summary when the scenario exports.
	Export *export.Summary `json:"export,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Records: []RecordResult{},
		Errors:  []string{},
		Defects: make(map[string]*mapper.DefectError),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRecord appends a converted record.
func (r *Result) AddRecord(target string, rec *ir.Record) {
	r.Records = append(r.Records, RecordResult{Target: target, Record: rec})
}

// AddDefect records a conversion defect.
func (r *Result) AddDefect(target string, d *mapper.DefectError) {
	r.Defects[target] = d
}

// Record returns the record converted for target.
func (r *Result) Record(target string) (*ir.Record, bool) {
	for _, rr := range r.Records {
		if rr.Target == target {
			return rr.Record, true
		}
	}
	return nil, false
}
