package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/micropay-go/internal/core/domain"
)

// txKeyPrefix namespaces transaction keys.
var txKeyPrefix = []byte("tx/")

// BadgerJournal implements Journal using Badger v3.
type BadgerJournal struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	closed     atomic.Bool
	lastGCTime atomic.Int64 // Unix milliseconds

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	// Shutdown
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewBadgerJournal opens a Badger-backed journal.
func NewBadgerJournal(cfg JournalConfig, logger *slog.Logger) (*BadgerJournal, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.BlockCacheSize = cfg.Badger.CacheSize
	opts.SyncWrites = cfg.Badger.SyncWrites && !cfg.InMemory

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	j := &BadgerJournal{
		db:     db,
		cfg:    cfg.Badger,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	if !cfg.InMemory {
		j.wg.Add(1)
		go j.gcLoop()
	}

	logger.Info("journal started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.Badger.GCInterval)

	return j, nil
}

func txKey(id string) []byte {
	return append(append([]byte{}, txKeyPrefix...), id...)
}

// Append stores tx as JSON keyed by its ID.
func (j *BadgerJournal) Append(ctx context.Context, tx *domain.Transaction) error {
	if j.closed.Load() {
		return ErrClosed
	}
	if tx == nil || tx.ID == "" {
		return domain.ErrInvalidArgument.WithDetails("transaction id is required")
	}
	value, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(txKey(tx.ID), value)
	})
}

// Get retrieves a transaction by ID.
func (j *BadgerJournal) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}
	var tx domain.Transaction
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(txKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &tx)
		})
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Scan iterates over transactions in key order.
func (j *BadgerJournal) Scan(ctx context.Context, fn func(tx *domain.Transaction) bool) error {
	if j.closed.Load() {
		return ErrClosed
	}
	return j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = txKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var tx domain.Transaction
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &tx)
			})
			if err != nil {
				return fmt.Errorf("journal: decode %s: %w", it.Item().Key(), err)
			}
			if !fn(&tx) {
				break
			}
		}
		return nil
	})
}

// Stats returns entry count, volume and Badger sizes.
func (j *BadgerJournal) Stats(ctx context.Context) (*JournalStats, error) {
	stats := &JournalStats{LastGCTime: j.lastGCTime.Load()}
	err := j.Scan(ctx, func(tx *domain.Transaction) bool {
		stats.Entries++
		stats.Volume += tx.Amount
		return true
	})
	if err != nil {
		return nil, err
	}
	lsm, vlog := j.db.Size()
	stats.LSMSize = uint64(lsm)
	stats.ValueLogSize = uint64(vlog)
	return stats, nil
}

// GC runs value log garbage collection until Badger reports nothing left
// to rewrite.
func (j *BadgerJournal) GC(ctx context.Context) error {
	startTime := time.Now()
	runs := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := j.db.RunValueLogGC(j.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	j.lastGCTime.Store(time.Now().UnixMilli())
	j.logger.Debug("journal gc completed",
		"runs", runs,
		"elapsed", time.Since(startTime))
	return nil
}

// Close stops background loops and closes the database.
func (j *BadgerJournal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		j.closed.Store(true)
		close(j.stopCh)
		j.wg.Wait()

		if cerr := j.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
			return
		}
		j.logger.Info("journal closed")
	})
	return err
}

// RegisterMetrics registers journal size gauges and starts refreshing
// them every interval.
func (j *BadgerJournal) RegisterMetrics(reg prometheus.Registerer, interval time.Duration) *BadgerJournal {
	j.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "micropay",
		Subsystem: "journal",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	j.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "micropay",
		Subsystem: "journal",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	j.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "micropay",
		Subsystem: "journal",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last journal GC run",
	})

	reg.MustRegister(j.metricsLSMSize, j.metricsValueLogSize, j.metricsLastGCTime)

	j.updateMetrics()
	j.wg.Add(1)
	go j.metricsUpdateLoop(interval)

	return j
}

func (j *BadgerJournal) updateMetrics() {
	lsm, vlog := j.db.Size()
	j.metricsLSMSize.Set(float64(lsm))
	j.metricsValueLogSize.Set(float64(vlog))
	if last := j.lastGCTime.Load(); last > 0 {
		j.metricsLastGCTime.Set(float64(last) / 1000.0)
	}
}

func (j *BadgerJournal) metricsUpdateLoop(interval time.Duration) {
	defer j.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.updateMetrics()
		case <-j.stopCh:
			return
		}
	}
}

func (j *BadgerJournal) gcLoop() {
	defer j.wg.Done()

	interval, err := time.ParseDuration(j.cfg.GCInterval)
	if err != nil || interval <= 0 {
		j.logger.Error("invalid gc_interval, using default 10m", "value", j.cfg.GCInterval)
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if err := j.GC(ctx); err != nil {
				j.logger.Error("journal gc failed", "error", err)
			}
			cancel()

		case <-j.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
