package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
	applogger "RiskScore/pkg/logger"
)

var (
	ErrBufferFull     = errors.New("audit buffer full")
	ErrPipelineClosed = errors.New("audit pipeline closed")
)

// AuditPipeline sits between the scoring paths and the verdict publisher.
// It validates and optionally throttles events, buffers them, and ships them
// in batches so a slow or unavailable broker never blocks a request.
type AuditPipeline struct {
	pub        domrepo.VerdictPublisher
	metrics    domrepo.Metrics
	log        *applogger.Logger
	maxRPS     int
	bufSize    int
	batchSize  int
	flushEvery time.Duration
	maxRetries int
	backoffMin time.Duration
	backoffMax time.Duration

	bufCh  chan *models.VerdictEvent
	stopCh chan struct{}
	done   chan struct{}

	mu       sync.Mutex
	started  bool
	closed   bool
	lastSeen map[models.VerdictKind]time.Time // per-kind last accepted time
}

type PipelineOption func(*AuditPipeline)

// WithMaxRPS caps accepted events per second per verdict kind. 0 disables.
func WithMaxRPS(n int) PipelineOption {
	return func(p *AuditPipeline) {
		if n >= 0 {
			p.maxRPS = n
		}
	}
}

func WithBufferSize(n int) PipelineOption {
	return func(p *AuditPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatching sets the batch size and the max time an event waits.
func WithBatching(size int, every time.Duration) PipelineOption {
	return func(p *AuditPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if every > 0 {
			p.flushEvery = every
		}
	}
}

// WithRetry sets how often a failed batch is retried before it is dropped.
func WithRetry(max int, min, maxBackoff time.Duration) PipelineOption {
	return func(p *AuditPipeline) {
		if max >= 0 {
			p.maxRetries = max
		}
		if min > 0 {
			p.backoffMin = min
		}
		if maxBackoff > 0 {
			p.backoffMax = maxBackoff
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *AuditPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewAuditPipeline creates a pipeline publishing to pub. Call Start before
// Submit.
func NewAuditPipeline(pub domrepo.VerdictPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *AuditPipeline {
	p := &AuditPipeline{
		pub:        pub,
		metrics:    metrics,
		log:        applogger.Nop(),
		bufSize:    1024,
		batchSize:  100,
		flushEvery: time.Second,
		maxRetries: 3,
		backoffMin: 50 * time.Millisecond,
		backoffMax: 2 * time.Second,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		lastSeen:   make(map[models.VerdictKind]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.VerdictEvent, p.bufSize)
	return p
}

// Start launches the background flusher.
func (p *AuditPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop flushes buffered events and stops the flusher. It waits for the
// final flush or until ctx is done.
func (p *AuditPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	close(p.stopCh)
	if !started {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit pipeline stop: %w", ctx.Err())
	}
}

// Submit validates, throttles and enqueues ev without blocking. Throttled
// events are dropped silently.
func (p *AuditPipeline) Submit(_ context.Context, ev *models.VerdictEvent) error {
	if err := validateEvent(ev); err != nil {
		p.metrics.RecordError("audit_validate")
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPipelineClosed
	}
	allowed := p.allow(ev.Kind, time.Now())
	p.mu.Unlock()
	if !allowed {
		p.metrics.RecordError("audit_throttle")
		return nil
	}

	select {
	case p.bufCh <- ev:
		p.metrics.RecordLatency("audit_buffer_depth", float64(len(p.bufCh)))
		return nil
	default:
		p.metrics.RecordError("audit_buffer_full")
		return ErrBufferFull
	}
}

func (p *AuditPipeline) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.flushEvery)
	defer ticker.Stop()

	batch := make([]*models.VerdictEvent, 0, p.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		p.publish(ctx, batch)
		batch = make([]*models.VerdictEvent, 0, p.batchSize)
	}

	for {
		select {
		case ev := <-p.bufCh:
			batch = append(batch, ev)
			if len(batch) >= p.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			p.drain(&batch)
			flush(context.Background())
			return
		case <-p.stopCh:
			p.drain(&batch)
			flush(context.Background())
			return
		}
	}
}

func (p *AuditPipeline) drain(batch *[]*models.VerdictEvent) {
	for {
		select {
		case ev := <-p.bufCh:
			*batch = append(*batch, ev)
		default:
			return
		}
	}
}

// publish sends batch with exponential backoff and drops it after
// maxRetries failed retries.
func (p *AuditPipeline) publish(ctx context.Context, batch []*models.VerdictEvent) {
	start := time.Now()
	backoff := p.backoffMin
	for attempt := 0; ; attempt++ {
		err := p.pub.PublishBatch(ctx, batch)
		if err == nil {
			p.metrics.RecordLatency("audit_flush", time.Since(start).Seconds())
			for _, ev := range batch {
				p.metrics.RecordMessageSent("kafka", string(ev.Kind))
			}
			return
		}
		p.metrics.RecordError("audit_flush")
		if attempt >= p.maxRetries {
			p.metrics.RecordError("audit_drop")
			p.log.Error("audit batch dropped",
				applogger.Int("events", len(batch)),
				applogger.Int("attempts", attempt+1),
				applogger.Error(err),
			)
			return
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			p.metrics.RecordError("audit_drop")
			return
		}
		if backoff *= 2; backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
}

func validateEvent(ev *models.VerdictEvent) error {
	if ev == nil {
		return fmt.Errorf("verdict event nil")
	}
	if ev.ID == "" {
		return fmt.Errorf("verdict event id empty")
	}
	switch ev.Kind {
	case models.KindMouse, models.KindFraud, models.KindTabular:
	default:
		return fmt.Errorf("unknown verdict kind %q", ev.Kind)
	}
	if ev.At.IsZero() {
		return fmt.Errorf("verdict event time missing")
	}
	return nil
}

// allow reports whether kind may emit at now. Callers hold p.mu.
func (p *AuditPipeline) allow(kind models.VerdictKind, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	last := p.lastSeen[kind]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[kind] = now
	return true
}
