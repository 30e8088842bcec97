package export

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/apache/arrow/go/v17/arrow/flight"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/23skdu/longbow-quill/internal/metrics"
)

func testRows() []Row {
	return []Row{
		{Sample: 0, Split: "val", ModelType: "translator", Source: "austen", Target: "twain",
			Input: "it is a truth", Output: "it aint", StopReason: "end", Reverse: "it is", HasReverse: true},
		{Sample: 1, Split: "val", ModelType: "translator", Source: "twain", Target: "austen",
			Input: "well now", Output: "indeed", StopReason: "length"},
	}
}

func TestRecordRows(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := NewRecord(mem, testRows())
	defer rec.Release()

	if rec.NumRows() != 2 || rec.NumCols() != 9 {
		t.Fatalf("record = %dx%d", rec.NumRows(), rec.NumCols())
	}
	rows, err := Rows(rec)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0] != testRows()[0] || rows[1] != testRows()[1] {
		t.Errorf("rows = %+v", rows)
	}
	if rec.Column(8).NullN() != 1 {
		t.Errorf("reverse nulls = %d, want 1", rec.Column(8).NullN())
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.arrow")
	before := testutil.ToFloat64(metrics.ExportedRecords.WithLabelValues("ipc"))

	if err := WriteFile(path, testRows()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	rows, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(rows) != 2 || rows[1].Output != "indeed" || !rows[0].HasReverse {
		t.Errorf("rows = %+v", rows)
	}
	if got := testutil.ToFloat64(metrics.ExportedRecords.WithLabelValues("ipc")) - before; got != 2 {
		t.Errorf("exported rows metric = %v, want 2", got)
	}

	if err := WriteFile(filepath.Join(t.TempDir(), "missing", "run.arrow"), testRows()); err == nil {
		t.Error("expected error for missing directory")
	}
}

type sinkServer struct {
	flight.BaseFlightServer

	mu   sync.Mutex
	path []string
	rows []Row
}

func (s *sinkServer) DoPut(stream flight.FlightService_DoPutServer) error {
	rdr, err := flight.NewRecordReader(stream)
	if err != nil {
		return err
	}
	defer rdr.Release()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = rdr.LatestFlightDescriptor().GetPath()
	for rdr.Next() {
		rows, err := Rows(rdr.Record())
		if err != nil {
			return err
		}
		s.rows = append(s.rows, rows...)
	}
	return rdr.Err()
}

func TestFlightDoPut(t *testing.T) {
	sink := &sinkServer{}
	srv := flight.NewServerWithMiddleware(nil)
	if err := srv.Init("localhost:0"); err != nil {
		t.Fatal(err)
	}
	srv.RegisterFlightService(sink)
	go func() { _ = srv.Serve() }()
	defer srv.Shutdown()

	fc := NewFlightClient(srv.Addr().String())
	ctx := context.Background()
	if err := fc.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer fc.Close()

	if err := fc.DoPut(ctx, "val", testRows()); err != nil {
		t.Fatalf("DoPut: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.path) != 2 || sink.path[0] != "quill" || sink.path[1] != "val" {
		t.Errorf("descriptor path = %v", sink.path)
	}
	if len(sink.rows) != 2 || sink.rows[0].Source != "austen" {
		t.Errorf("server rows = %+v", sink.rows)
	}
}

func TestDoPutRequiresConnection(t *testing.T) {
	fc := NewFlightClient("localhost:1")
	if err := fc.DoPut(context.Background(), "val", testRows()); err == nil {
		t.Error("expected error when not connected")
	}
	if err := fc.Close(); err != nil {
		t.Errorf("Close on unconnected client = %v", err)
	}
}
