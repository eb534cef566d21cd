package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/object"
)

// ConvertedRecord is one converted record with its change tag.
type ConvertedRecord struct {
	ChangeTag string          `json:"change_tag"`
	Record    json.RawMessage `json:"record"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <specs-dir> <type> [key...]",
		Short: "Convert stored objects to records",
		Long: `Convert stored objects of one type to records and print them.

Without keys every stored object of the type is converted. Nothing is
written; use export to record snapshots.

Exit codes:
  0 - All objects converted
  2 - Command error (unknown type, missing object, etc.)
  3 - Configuration defect (no schema, missing or mistyped primary key)`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(rootOpts, args[0], args[1], args[2:], cmd)
		},
	}

	return cmd
}

func runConvert(opts *RootOptions, specsDir, recordType string, keys []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cat, err := loadCatalog(opts, formatter, specsDir)
	if err != nil {
		return err
	}
	if _, err := cat.Require(recordType); err != nil {
		_ = formatter.Error(catalog.ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown object type", err)
	}

	m, err := newMapper(opts, formatter, cat)
	if err != nil {
		return err
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

	var objs []object.Object
	if len(keys) == 0 {
		stored, err := st.ListObjects(ctx, recordType)
		if err != nil {
			_ = formatter.Error(catalog.ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list objects", err)
		}
		for _, obj := range stored {
			objs = append(objs, obj)
		}
	}
	for _, key := range keys {
		obj, err := st.GetObject(ctx, recordType, key)
		if errors.Is(err, sql.ErrNoRows) {
			msg := fmt.Sprintf("no stored %s with key %q", recordType, key)
			_ = formatter.Error(catalog.ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		if err != nil {
			_ = formatter.Error(catalog.ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read object", err)
		}
		objs = append(objs, obj)
	}

	converted := make([]ConvertedRecord, 0, len(objs))
	records := make([]*ir.Record, 0, len(objs))
	for _, obj := range objs {
		rec, err := m.Record(obj)
		if err != nil {
			return reportDefect(formatter, err)
		}
		formatter.VerboseLog("Converted %s", rec.ID)

		body, err := ir.MarshalRecord(rec)
		if err != nil {
			return err
		}
		tag, err := ir.ChangeTag(rec)
		if err != nil {
			return err
		}
		converted = append(converted, ConvertedRecord{ChangeTag: tag, Record: body})
		records = append(records, rec)
	}

	if formatter.Format == "json" {
		return formatter.Success(converted)
	}

	if len(records) == 0 {
		fmt.Fprintf(formatter.Writer, "No stored %s objects.\n", recordType)
		return nil
	}
	for i, rec := range records {
		writeRecordText(formatter, rec, converted[i].ChangeTag)
	}
	return nil
}

// writeRecordText prints a record as an indented field list.
func writeRecordText(formatter *OutputFormatter, rec *ir.Record, tag string) {
	w := formatter.Writer
	fmt.Fprintf(w, "%s %s (%s)\n", rec.RecordType, rec.ID, shortTag(tag))
	for _, name := range rec.FieldNames() {
		v, _ := rec.Lookup(name)
		fmt.Fprintf(w, "  %s = %s\n", name, describeValue(v))
	}
	fmt.Fprintln(w)
}

// describeValue renders a field value for text output.
func describeValue(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRNull:
		return "<cleared>"
	case ir.IRReference:
		return "-> " + val.ID.String()
	case ir.IRReferenceList:
		names := make([]string, len(val))
		for i, ref := range val {
			names[i] = ref.ID.RecordName
		}
		return "[" + strings.Join(names, ", ") + "]"
	case ir.IRAsset:
		return fmt.Sprintf("asset %s (%d bytes)", shortTag(val.Checksum), val.Size)
	}

	tagged, err := ir.EncodeValue(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	data, err := ir.MarshalCanonical(tagged["value"])
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

func shortTag(tag string) string {
	if len(tag) > 12 {
		return tag[:12]
	}
	return tag
}
