package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/boxmeout/poolengine/internal/domain"
)

// TradeArchiveStore is the narrow ledger view the archiver needs.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
}

// Archiver snapshots aged ledger entries to object storage as JSONL, one
// object per calendar month. Deleting archived rows from the primary store
// is a separate explicit step, taken only after the archive is verified.
type Archiver struct {
	writer    *Writer
	trades    TradeArchiveStore
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

// NewArchiver creates an Archiver that, every interval, uploads trades older
// than the retention window.
func NewArchiver(writer *Writer, trades TradeArchiveStore, interval, retention time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		trades:    trades,
		interval:  interval,
		retention: retention,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// Run executes the archive cycle on a ticker until the context is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-a.retention)
			n, err := a.ArchiveTrades(ctx, cutoff)
			if err != nil {
				a.logger.ErrorContext(ctx, "archive cycle failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "trades archived",
					slog.Int64("count", n),
					slog.Time("cutoff", cutoff),
				)
			}
		}
	}
}

// ArchiveTrades uploads all trades settled before the cutoff to
// archive/trades/YYYY-MM.jsonl and returns the archived count.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if int64(len(buf)) >= minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	return int64(len(trades)), nil
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// archivePath builds the per-month object key, e.g. archive/trades/2026-08.jsonl.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01"))
}
