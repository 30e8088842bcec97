package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v17/arrow/flight"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/23skdu/longbow-quill/internal/logger"
	"github.com/23skdu/longbow-quill/internal/metrics"
)

// DescriptorRoot prefixes the descriptor path of every upload.
const DescriptorRoot = "quill"

// FlightClient uploads runs to an Arrow Flight endpoint.
type FlightClient struct {
	client  flight.Client
	addr    string
	timeout time.Duration
}

func NewFlightClient(addr string) *FlightClient {
	return &FlightClient{addr: addr, timeout: 30 * time.Second}
}

// Connect dials the endpoint without transport security.
func (fc *FlightClient) Connect(ctx context.Context) error {
	client, err := flight.NewClientWithMiddlewareCtx(ctx, fc.addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create Flight client: %w", err)
	}
	fc.client = client
	return nil
}

func (fc *FlightClient) Close() error {
	if fc.client != nil {
		err := fc.client.Close()
		fc.client = nil
		return err
	}
	return nil
}

// DoPut sends rows as one record under the descriptor path quill/<split>.
func (fc *FlightClient) DoPut(ctx context.Context, split string, rows []Row) error {
	if fc.client == nil {
		return fmt.Errorf("client not connected, call Connect() first")
	}
	if len(rows) == 0 {
		return fmt.Errorf("no rows provided")
	}

	ctx, cancel := context.WithTimeout(ctx, fc.timeout)
	defer cancel()

	stream, err := fc.client.DoPut(ctx)
	if err != nil {
		return fmt.Errorf("failed to open DoPut stream: %w", err)
	}

	mem := memory.NewGoAllocator()
	w := flight.NewRecordWriter(stream, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	w.SetFlightDescriptor(&flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{DescriptorRoot, split},
	})

	rec := NewRecord(mem, rows)
	defer rec.Release()

	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	for {
		if _, err := stream.Recv(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("DoPut: %w", err)
		}
	}

	metrics.RecordExport("flight", len(rows))
	logger.Log.Info("Run uploaded", "addr", fc.addr, "split", split, "rows", len(rows))
	return nil
}
