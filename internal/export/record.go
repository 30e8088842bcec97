package export

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Row is one decoded sample of a run.
type Row struct {
	Sample     int
	Split      string
	ModelType  string
	Source     string
	Target     string
	Input      string
	Output     string
	StopReason string
	Reverse    string
	HasReverse bool
}

var schema = arrow.NewSchema([]arrow.Field{
	{Name: "sample", Type: arrow.PrimitiveTypes.Int64},
	{Name: "split", Type: arrow.BinaryTypes.String},
	{Name: "model_type", Type: arrow.BinaryTypes.String},
	{Name: "source_author", Type: arrow.BinaryTypes.String},
	{Name: "target_author", Type: arrow.BinaryTypes.String},
	{Name: "input", Type: arrow.BinaryTypes.String},
	{Name: "output", Type: arrow.BinaryTypes.String},
	{Name: "stop_reason", Type: arrow.BinaryTypes.String},
	{Name: "reverse", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// Schema is the Arrow schema of exported runs.
func Schema() *arrow.Schema { return schema }

// NewRecord builds one record from rows. The caller releases it.
func NewRecord(mem memory.Allocator, rows []Row) arrow.Record {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	sample := b.Field(0).(*array.Int64Builder)
	strs := make([]*array.StringBuilder, 8)
	for i := range strs {
		strs[i] = b.Field(i + 1).(*array.StringBuilder)
	}
	for _, r := range rows {
		sample.Append(int64(r.Sample))
		strs[0].Append(r.Split)
		strs[1].Append(r.ModelType)
		strs[2].Append(r.Source)
		strs[3].Append(r.Target)
		strs[4].Append(r.Input)
		strs[5].Append(r.Output)
		strs[6].Append(r.StopReason)
		if r.HasReverse {
			strs[7].Append(r.Reverse)
		} else {
			strs[7].AppendNull()
		}
	}
	return b.NewRecord()
}

// Rows converts a record with the export schema back to rows.
func Rows(rec arrow.Record) ([]Row, error) {
	if !rec.Schema().Equal(schema) {
		return nil, fmt.Errorf("export: unexpected schema %s", rec.Schema())
	}
	sample := rec.Column(0).(*array.Int64)
	str := func(i int) *array.String { return rec.Column(i).(*array.String) }

	out := make([]Row, rec.NumRows())
	for i := range out {
		out[i] = Row{
			Sample:     int(sample.Value(i)),
			Split:      str(1).Value(i),
			ModelType:  str(2).Value(i),
			Source:     str(3).Value(i),
			Target:     str(4).Value(i),
			Input:      str(5).Value(i),
			Output:     str(6).Value(i),
			StopReason: str(7).Value(i),
		}
		if rev := str(8); rev.IsValid(i) {
			out[i].Reverse = rev.Value(i)
			out[i].HasReverse = true
		}
	}
	return out, nil
}
