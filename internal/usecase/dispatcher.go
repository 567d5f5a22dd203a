package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
	domsvc "RiskScore/internal/domain/service"
	svcmetrics "RiskScore/internal/service/metrics"
	"RiskScore/internal/services/artifacts"
	"RiskScore/internal/services/decision"
	"RiskScore/internal/services/features"
	"RiskScore/internal/services/inference"
	"RiskScore/pkg/cache"
	"RiskScore/pkg/logger"
)

// VerdictSink receives audit events for produced verdicts.
type VerdictSink interface {
	Submit(ctx context.Context, ev *models.VerdictEvent) error
}

// InferenceDispatcher runs the three scoring paths: feature construction,
// model call, decision policy. It holds no request state and is safe for
// concurrent use.
type InferenceDispatcher struct {
	registry *artifacts.Registry
	mouse    domsvc.MouseModel
	fraud    domsvc.FraudModel
	tabular  domsvc.TabularModel

	cache    cache.Service
	cacheTTL time.Duration
	sink     VerdictSink
	metrics  domrepo.Metrics
	log      *logger.Logger
	now      func() time.Time
}

type DispatcherOption func(*InferenceDispatcher)

// WithVerdictCache caches raw model outputs keyed by a hash of the model
// input. Models are deterministic so a hit yields the same verdict.
func WithVerdictCache(c cache.Service, ttl time.Duration) DispatcherOption {
	return func(d *InferenceDispatcher) {
		d.cache = c
		d.cacheTTL = ttl
	}
}

// WithVerdictSink sends every verdict to sink. Sink errors are logged only.
func WithVerdictSink(sink VerdictSink) DispatcherOption {
	return func(d *InferenceDispatcher) { d.sink = sink }
}

func WithDispatcherMetrics(m domrepo.Metrics) DispatcherOption {
	return func(d *InferenceDispatcher) { d.metrics = m }
}

func WithDispatcherLogger(log *logger.Logger) DispatcherOption {
	return func(d *InferenceDispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// NewInferenceDispatcher wires the artifact registry to the model ports.
func NewInferenceDispatcher(
	reg *artifacts.Registry,
	mouse domsvc.MouseModel,
	fraud domsvc.FraudModel,
	tabular domsvc.TabularModel,
	opts ...DispatcherOption,
) *InferenceDispatcher {
	d := &InferenceDispatcher{
		registry: reg,
		mouse:    mouse,
		fraud:    fraud,
		tabular:  tabular,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AnalyzeMouse scores a movement trace.
func (d *InferenceDispatcher) AnalyzeMouse(ctx context.Context, samples []models.MovementSample) (models.MouseVerdict, error) {
	start := d.now()
	vec := features.ExtractKinematics(samples)

	var out models.OutlierOutput
	key := d.cacheKey(models.KindMouse, vec)
	if !d.lookup(ctx, models.KindMouse, key, &out) {
		var err error
		out, err = d.mouse.Score(ctx, vec)
		if err != nil {
			d.recordError(models.KindMouse, err)
			return models.MouseVerdict{}, err
		}
		d.store(ctx, key, out)
	}

	v := decision.MouseVerdict(out, d.registry.OutlierClass())
	d.emit(ctx, models.KindMouse, string(v.Label), v.AnomalyScore)
	d.recordLatency(models.KindMouse, start)
	return v, nil
}

// PredictFraud scores one transaction.
func (d *InferenceDispatcher) PredictFraud(ctx context.Context, tx models.TransactionRecord) (models.FraudVerdict, error) {
	start := d.now()
	row := tx.FeatureRow()

	var p float64
	key := d.cacheKey(models.KindFraud, row)
	if !d.lookup(ctx, models.KindFraud, key, &p) {
		var err error
		p, err = d.fraud.Predict(ctx, row)
		if err != nil {
			d.recordError(models.KindFraud, err)
			return models.FraudVerdict{}, err
		}
		d.store(ctx, key, p)
	}

	v := decision.FraudVerdict(p)
	d.emit(ctx, models.KindFraud, string(v.Prediction), v.Probability)
	d.recordLatency(models.KindFraud, start)
	return v, nil
}

// DetectAnomalies classifies a batch of records. Output order follows
// input order; an empty batch never reaches the model.
func (d *InferenceDispatcher) DetectAnomalies(ctx context.Context, records []models.AnomalyRecord) ([]models.TabularVerdict, error) {
	if len(records) == 0 {
		return []models.TabularVerdict{}, nil
	}
	start := d.now()
	m, err := d.registry.Encoder().Encode(records)
	if err != nil {
		d.recordError(models.KindTabular, err)
		return nil, err
	}

	var out models.ClassifierOutput
	key := d.cacheKey(models.KindTabular, m.Rows)
	if !d.lookup(ctx, models.KindTabular, key, &out) {
		out, err = d.tabular.Classify(ctx, m)
		if err != nil {
			d.recordError(models.KindTabular, err)
			return nil, err
		}
		d.store(ctx, key, out)
	}

	verdicts, err := decision.TabularVerdicts(out, m.Labels)
	if err != nil {
		d.recordError(models.KindTabular, err)
		return nil, &inference.ModelError{Model: string(models.KindTabular), Err: err}
	}
	for _, v := range verdicts {
		d.emit(ctx, models.KindTabular, fmt.Sprintf("%d", v.PredictedIsAnomaly), v.AnomalyProbability)
	}
	d.recordLatency(models.KindTabular, start)
	return verdicts, nil
}

func (d *InferenceDispatcher) cacheKey(kind models.VerdictKind, input interface{}) string {
	if d.cache == nil {
		return ""
	}
	b, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	return cache.GenerateKey("verdict", kind, d.registry.Version(), cache.HashKey(b))
}

func (d *InferenceDispatcher) lookup(ctx context.Context, kind models.VerdictKind, key string, dest interface{}) bool {
	if key == "" {
		return false
	}
	err := d.cache.Get(ctx, key, dest)
	switch {
	case err == nil:
		svcmetrics.CacheLookups.WithLabelValues(string(kind), "hit").Inc()
		return true
	case errors.Is(err, cache.ErrCacheMiss):
		svcmetrics.CacheLookups.WithLabelValues(string(kind), "miss").Inc()
	default:
		svcmetrics.CacheLookups.WithLabelValues(string(kind), "error").Inc()
		d.log.Warn("verdict cache read failed", logger.String("kind", string(kind)), logger.Error(err))
	}
	return false
}

func (d *InferenceDispatcher) store(ctx context.Context, key string, value interface{}) {
	if key == "" {
		return
	}
	if err := d.cache.Set(ctx, key, value, d.cacheTTL); err != nil {
		d.log.Warn("verdict cache write failed", logger.Error(err))
	}
}

func (d *InferenceDispatcher) emit(ctx context.Context, kind models.VerdictKind, label string, score float64) {
	if d.metrics != nil {
		d.metrics.RecordVerdict(string(kind), label)
	}
	if d.sink == nil {
		return
	}
	ev := &models.VerdictEvent{
		ID:    uuid.NewString(),
		Kind:  kind,
		Label: label,
		Score: score,
		At:    d.now().UTC(),
	}
	if err := d.sink.Submit(ctx, ev); err != nil {
		d.log.Warn("verdict audit submit failed", logger.String("kind", string(kind)), logger.Error(err))
	}
}

func (d *InferenceDispatcher) recordError(kind models.VerdictKind, err error) {
	if d.metrics != nil {
		d.metrics.RecordError(string(kind) + "_" + errorKind(err))
	}
}

func (d *InferenceDispatcher) recordLatency(kind models.VerdictKind, start time.Time) {
	if d.metrics != nil {
		d.metrics.RecordLatency("dispatch_"+string(kind), d.now().Sub(start).Seconds())
	}
}

func errorKind(err error) string {
	var (
		schema *features.SchemaError
		enc    *features.EncodingError
		model  *inference.ModelError
	)
	switch {
	case errors.As(err, &schema):
		return "schema"
	case errors.As(err, &enc):
		return "encoding"
	case errors.As(err, &model):
		return "model"
	default:
		return "internal"
	}
}
