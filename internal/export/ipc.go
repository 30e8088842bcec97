package export

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/23skdu/longbow-quill/internal/logger"
	"github.com/23skdu/longbow-quill/internal/metrics"
)

// WriteFile writes rows to path as an Arrow IPC file.
func WriteFile(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	rec := NewRecord(mem, rows)
	defer rec.Release()

	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	metrics.RecordExport("ipc", len(rows))
	logger.Log.Info("Run exported", "path", path, "rows", len(rows))
	return f.Close()
}

// ReadFile reads every record of an IPC file written by WriteFile.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("export: read %s: %w", path, err)
	}
	defer r.Close()

	var out []Row
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("export: record %d: %w", i, err)
		}
		rows, err := Rows(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}
