package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, rec *models.TradeRecord) error
	ProcessBatch(ctx context.Context, recs []*models.TradeRecord) error
}

// TradePipeline sits between the engine ledger and the event backend.
// It validates records and forwards them downstream, buffering and
// retrying with backoff while the backend is unavailable.
type TradePipeline struct {
	proc       Proc
	metrics    domrepo.Metrics
	bufSize    int
	batchSize  int
	bufCh      chan *models.TradeRecord
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	mu         sync.Mutex
	maxBackoff time.Duration
}

type PipelineOption func(*TradePipeline)

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *TradePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatchSize caps how many buffered records one flush sends.
func WithBatchSize(n int) PipelineOption {
	return func(p *TradePipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithMaxBackoff caps the retry delay.
func WithMaxBackoff(d time.Duration) PipelineOption {
	return func(p *TradePipeline) {
		if d > 0 {
			p.maxBackoff = d
		}
	}
}

// NewTradePipeline creates a new pipeline.
func NewTradePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *TradePipeline {
	p := &TradePipeline{
		proc:       proc,
		metrics:    metrics,
		bufSize:    1000,
		batchSize:  100,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		maxBackoff: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.TradeRecord, p.bufSize)
	return p
}

// Start launches background flushing of buffered records.
func (p *TradePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case rec := <-p.bufCh:
				batch := p.drain(rec)
				if len(batch) == 0 {
					continue
				}
				if err := p.proc.ProcessBatch(ctx, batch); err != nil {
					if backoff < p.maxBackoff {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					}
					p.requeue(batch)
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// drain collects first plus whatever is already buffered, up to batchSize.
func (p *TradePipeline) drain(first *models.TradeRecord) []*models.TradeRecord {
	batch := make([]*models.TradeRecord, 0, p.batchSize)
	if first != nil {
		batch = append(batch, first)
	}
	for len(batch) < p.batchSize {
		select {
		case rec := <-p.bufCh:
			if rec != nil {
				batch = append(batch, rec)
			}
		default:
			return batch
		}
	}
	return batch
}

func (p *TradePipeline) requeue(batch []*models.TradeRecord) {
	for _, rec := range batch {
		select {
		case p.bufCh <- rec:
		default:
			p.metrics.RecordError("pipeline_buffer_drop")
		}
	}
}

// Stop stops the background flushing and waits for it to return.
func (p *TradePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Pending returns the number of buffered records.
func (p *TradePipeline) Pending() int { return len(p.bufCh) }

// Notify validates and forwards a record, buffering it on downstream errors.
func (p *TradePipeline) Notify(ctx context.Context, rec models.TradeRecord) error {
	start := time.Now()
	if err := validateRecord(&rec); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	if err := p.proc.Process(ctx, &rec); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- &rec:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateRecord(rec *models.TradeRecord) error {
	if rec == nil {
		return fmt.Errorf("trade record nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("trade id empty")
	}
	if rec.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if rec.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if rec.Action != models.SideBuy && rec.Action != models.SideSell {
		return fmt.Errorf("action invalid: %q", rec.Action)
	}
	if rec.Price <= 0 || rec.Quantity <= 0 {
		return fmt.Errorf("non-positive price/quantity")
	}
	return nil
}
