package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskScore/internal/domain/models"
	"RiskScore/internal/services/artifacts"
	"RiskScore/internal/services/features"
	"RiskScore/internal/services/inference"
	"RiskScore/pkg/cache"
)

const testArtifacts = `
version: "t1"
tabular:
  feature_columns: [failed_logins, ip_class]
  encoding:
    ip_class: {residential: 0, datacenter: 1}
  scaler:
    mean: {failed_logins: 0}
    scale: {failed_logins: 1}
`

type fakeMouse struct {
	out   models.OutlierOutput
	err   error
	calls int
	got   models.KinematicFeatureVector
}

func (f *fakeMouse) Score(_ context.Context, v models.KinematicFeatureVector) (models.OutlierOutput, error) {
	f.calls++
	f.got = v
	return f.out, f.err
}

type fakeFraud struct {
	p     float64
	err   error
	calls int
	got   models.FraudFeatureRow
}

func (f *fakeFraud) Predict(_ context.Context, row models.FraudFeatureRow) (float64, error) {
	f.calls++
	f.got = row
	return f.p, f.err
}

type fakeTabular struct {
	calls int
	got   models.FeatureMatrix
}

// Classify predicts 1 for datacenter rows, echoing a fixed probability.
func (f *fakeTabular) Classify(_ context.Context, m models.FeatureMatrix) (models.ClassifierOutput, error) {
	f.calls++
	f.got = m
	out := models.ClassifierOutput{}
	for _, row := range m.Rows {
		if row[1] == 1 {
			out.Predictions = append(out.Predictions, 1)
			out.Probabilities = append(out.Probabilities, 0.9)
		} else {
			out.Predictions = append(out.Predictions, 0)
			out.Probabilities = append(out.Probabilities, 0.2)
		}
	}
	return out, nil
}

type recordingSink struct {
	mu  sync.Mutex
	evs []*models.VerdictEvent
	err error
}

func (s *recordingSink) Submit(_ context.Context, ev *models.VerdictEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evs = append(s.evs, ev)
	return s.err
}

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) (*InferenceDispatcher, *fakeMouse, *fakeFraud, *fakeTabular) {
	t.Helper()
	reg, err := artifacts.Parse([]byte(testArtifacts))
	require.NoError(t, err)
	m, f, tb := &fakeMouse{}, &fakeFraud{}, &fakeTabular{}
	return NewInferenceDispatcher(reg, m, f, tb, opts...), m, f, tb
}

func TestAnalyzeMouse(t *testing.T) {
	d, mouse, _, _ := newTestDispatcher(t)
	mouse.out = models.OutlierOutput{Score: -0.3, Class: -1}

	v, err := d.AnalyzeMouse(context.Background(), []models.MovementSample{
		{X: 0, Y: 0, TimeMs: 0},
		{X: 3, Y: 4, TimeMs: 10},
	})
	require.NoError(t, err)
	assert.True(t, v.IsAnomaly)
	assert.Equal(t, models.LabelAnomalous, v.Label)
	assert.Equal(t, -0.3, v.AnomalyScore)
	assert.InDelta(t, 0.25, mouse.got.MeanVelocity, 1e-12)
	assert.Equal(t, 2, mouse.got.NumPoints)
}

func TestAnalyzeMouseNormal(t *testing.T) {
	d, mouse, _, _ := newTestDispatcher(t)
	mouse.out = models.OutlierOutput{Score: 0.1, Class: 1}

	v, err := d.AnalyzeMouse(context.Background(), []models.MovementSample{{X: 1, Y: 1, TimeMs: 5}})
	require.NoError(t, err)
	assert.False(t, v.IsAnomaly)
	assert.Equal(t, models.LabelNormal, v.Label)
}

func TestPredictFraudThreshold(t *testing.T) {
	tests := []struct {
		p    float64
		want models.FraudLabel
	}{
		{0.951, models.LabelFraud},
		{0.95, models.LabelNotFraud},
		{0.1, models.LabelNotFraud},
	}
	for _, tt := range tests {
		d, _, fraud, _ := newTestDispatcher(t)
		fraud.p = tt.p
		v, err := d.PredictFraud(context.Background(), models.TransactionRecord{Type: "TRANSFER", OldBalanceOrig: 50})
		require.NoError(t, err)
		assert.Equal(t, tt.want, v.Prediction, "p=%v", tt.p)
		assert.Equal(t, tt.p, v.Probability)
		assert.Equal(t, 50.0, fraud.got.OldBalanceOrg)
	}
}

func TestModelErrorPropagates(t *testing.T) {
	d, _, fraud, _ := newTestDispatcher(t)
	fraud.err = &inference.ModelError{Model: "fraud", Err: errors.New("down")}

	_, err := d.PredictFraud(context.Background(), models.TransactionRecord{})
	var me *inference.ModelError
	assert.ErrorAs(t, err, &me)
}

func TestDetectAnomaliesOrderAndEcho(t *testing.T) {
	d, _, _, tab := newTestDispatcher(t)
	recs, err := features.ParseAnomalyRecords([]byte(`[
		{"failed_logins": 3, "ip_class": "datacenter", "is_anomaly": 1},
		{"failed_logins": 0, "ip_class": "residential"},
		{"failed_logins": 1, "ip_class": "datacenter", "is_anomaly": 0, "user_id": "u9"}
	]`))
	require.NoError(t, err)

	out, err := d.DetectAnomalies(context.Background(), recs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[0].PredictedIsAnomaly)
	assert.Equal(t, 0, out[1].PredictedIsAnomaly)
	assert.Equal(t, 1, out[2].PredictedIsAnomaly)
	require.NotNil(t, out[0].IsAnomaly)
	assert.Equal(t, 1, *out[0].IsAnomaly)
	assert.Nil(t, out[1].IsAnomaly)
	require.NotNil(t, out[2].IsAnomaly)
	assert.Equal(t, 0, *out[2].IsAnomaly)
	assert.Equal(t, 1, tab.calls)
}

func TestDetectAnomaliesEmptyBatch(t *testing.T) {
	d, _, _, tab := newTestDispatcher(t)

	out, err := d.DetectAnomalies(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
	assert.Zero(t, tab.calls)
}

func TestDetectAnomaliesUnseenCategory(t *testing.T) {
	d, _, _, tab := newTestDispatcher(t)
	recs, err := features.ParseAnomalyRecords([]byte(`{"failed_logins": 1, "ip_class": "satellite"}`))
	require.NoError(t, err)

	_, err = d.DetectAnomalies(context.Background(), recs)
	var ee *features.EncodingError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "satellite", ee.Value)
	assert.Zero(t, tab.calls)
}

func TestVerdictCacheSkipsModel(t *testing.T) {
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	d, mouse, _, _ := newTestDispatcher(t, WithVerdictCache(mem, 0))
	mouse.out = models.OutlierOutput{Score: 0.4, Class: -1}
	samples := []models.MovementSample{{X: 0, Y: 0, TimeMs: 0}, {X: 1, Y: 1, TimeMs: 2}}

	first, err := d.AnalyzeMouse(context.Background(), samples)
	require.NoError(t, err)
	second, err := d.AnalyzeMouse(context.Background(), samples)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mouse.calls)
}

func TestSinkFailureDoesNotFailRequest(t *testing.T) {
	sink := &recordingSink{err: errors.New("buffer full")}
	d, _, fraud, _ := newTestDispatcher(t, WithVerdictSink(sink))
	fraud.p = 0.99

	v, err := d.PredictFraud(context.Background(), models.TransactionRecord{Type: "CASH_OUT"})
	require.NoError(t, err)
	assert.Equal(t, models.LabelFraud, v.Prediction)
	require.Len(t, sink.evs, 1)
	assert.Equal(t, models.KindFraud, sink.evs[0].Kind)
	assert.Equal(t, "FRAUD", sink.evs[0].Label)
	assert.NotEmpty(t, sink.evs[0].ID)
}
