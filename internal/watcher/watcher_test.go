package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"github.com/freightauditlabs/freightaudit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBatchService struct {
	mu      sync.Mutex
	submits int
}

func (s *stubBatchService) Submit(ctx context.Context, req batchdomain.SubmitRequest) (batchdomain.Batch, error) {
	// drain both streams like the real pipeline would
	_, _ = io.ReadAll(req.Invoice)
	_, _ = io.ReadAll(req.Contract)

	s.mu.Lock()
	s.submits++
	s.mu.Unlock()
	return batchdomain.Batch{ID: 42, Status: batchdomain.BatchCompleted}, nil
}

func (s *stubBatchService) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits
}

func (s *stubBatchService) Create(context.Context, batchdomain.CreateRequest) (batchdomain.Batch, error) {
	return batchdomain.Batch{}, nil
}
func (s *stubBatchService) Process(context.Context, batchdomain.ProcessRequest) (batchdomain.Batch, error) {
	return batchdomain.Batch{}, nil
}
func (s *stubBatchService) Get(context.Context, batchdomain.GetRequest) (batchdomain.Batch, error) {
	return batchdomain.Batch{}, nil
}
func (s *stubBatchService) List(context.Context, batchdomain.ListRequest) (batchdomain.ListResult, error) {
	return batchdomain.ListResult{}, nil
}
func (s *stubBatchService) Discrepancies(context.Context, batchdomain.DiscrepanciesRequest) ([]auditdomain.Discrepancy, error) {
	return nil, nil
}

func TestWatcher_ProcessesPairAndArchives(t *testing.T) {
	inbox := t.TempDir()
	stub := &stubBatchService{}

	w := New(Param{
		Log: zap.NewNop(),
		Config: config.Config{
			Watcher: config.WatcherConfig{Enabled: true, InboxDir: inbox},
		},
		Batches: stub,
	})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop(context.Background())

	// invoice alone is not enough
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "april_invoice.csv"), []byte("awb_number\nA1\n"), 0o644))
	time.Sleep(2 * debounce)
	assert.Zero(t, stub.submitCount())

	require.NoError(t, os.WriteFile(filepath.Join(inbox, "april_contract.csv"), []byte("zone,base_rate\nZONE_A,50\n"), 0o644))

	require.Eventually(t, func() bool {
		return stub.submitCount() == 1
	}, 5*time.Second, 50*time.Millisecond)

	// both files moved out of the inbox
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(inbox)
		if err != nil {
			return false
		}
		csvs := 0
		for _, e := range entries {
			if !e.IsDir() {
				csvs++
			}
		}
		return csvs == 0
	}, 5*time.Second, 50*time.Millisecond)

	archived, err := os.ReadDir(filepath.Join(inbox, processedDir))
	require.NoError(t, err)
	assert.Len(t, archived, 2)
}

func TestWatcher_DisabledIsNoOp(t *testing.T) {
	w := New(Param{
		Log:     zap.NewNop(),
		Config:  config.Config{Watcher: config.WatcherConfig{Enabled: false}},
		Batches: &stubBatchService{},
	})
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop(context.Background()))
}
