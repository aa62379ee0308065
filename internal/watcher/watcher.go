// Package watcher ingests invoice/contract CSV pairs dropped into an inbox
// directory. A pair shares a stem: <stem>_invoice.csv and <stem>_contract.csv.
// Processed files are moved aside so a restart never re-audits them.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"github.com/freightauditlabs/freightaudit/internal/config"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	invoiceSuffix  = "_invoice.csv"
	contractSuffix = "_contract.csv"
	processedDir   = "processed"

	debounce = 500 * time.Millisecond
)

type Watcher struct {
	log     *zap.Logger
	cfg     config.WatcherConfig
	batches batchdomain.Service

	fsw  *fsnotify.Watcher
	stop chan struct{}
}

type Param struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	Batches batchdomain.Service
}

func New(p Param) *Watcher {
	return &Watcher{
		log:     p.Log.Named("watcher"),
		cfg:     p.Config.Watcher,
		batches: p.Batches,
		stop:    make(chan struct{}),
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.Enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Join(w.cfg.InboxDir, processedDir), 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.cfg.InboxDir); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	w.log.Info("watching inbox", zap.String("dir", w.cfg.InboxDir))
	go w.loop()

	// pick up pairs that were already waiting
	w.sweep(context.Background())
	return nil
}

func (w *Watcher) Stop(ctx context.Context) error {
	if w.fsw == nil {
		return nil
	}
	close(w.stop)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".csv") {
				continue
			}
			// writers rarely deliver a file atomically, so settle first
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				w.sweep(context.Background())
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("inbox watch error", zap.Error(err))
		}
	}
}

// sweep pairs up everything currently in the inbox and audits each complete
// pair.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.InboxDir)
	if err != nil {
		w.log.Error("inbox scan failed", zap.Error(err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), invoiceSuffix) {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), invoiceSuffix)
		invoicePath := filepath.Join(w.cfg.InboxDir, entry.Name())
		contractPath := filepath.Join(w.cfg.InboxDir, stem+contractSuffix)
		if _, err := os.Stat(contractPath); err != nil {
			// contract not dropped yet, wait for the next event
			continue
		}
		w.processPair(ctx, stem, invoicePath, contractPath)
	}
}

func (w *Watcher) processPair(ctx context.Context, stem, invoicePath, contractPath string) {
	invoice, err := os.Open(invoicePath)
	if err != nil {
		w.log.Error("open invoice failed", zap.String("path", invoicePath), zap.Error(err))
		return
	}
	defer invoice.Close()

	contract, err := os.Open(contractPath)
	if err != nil {
		w.log.Error("open contract failed", zap.String("path", contractPath), zap.Error(err))
		return
	}
	defer contract.Close()

	batch, err := w.batches.Submit(ctx, batchdomain.SubmitRequest{
		Invoice:  invoice,
		Contract: contract,
	})
	if err != nil {
		w.log.Error("inbox batch submit failed", zap.String("stem", stem), zap.Error(err))
		return
	}

	w.log.Info("inbox pair audited",
		zap.String("stem", stem),
		zap.String("batch_id", batch.ID.String()),
		zap.String("status", string(batch.Status)))

	w.archive(invoicePath, batch.ID.String())
	w.archive(contractPath, batch.ID.String())
}

func (w *Watcher) archive(path, batchID string) {
	dest := filepath.Join(w.cfg.InboxDir, processedDir, batchID+"_"+filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		w.log.Warn("archive failed", zap.String("path", path), zap.Error(err))
	}
}
