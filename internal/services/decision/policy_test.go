package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskScore/internal/domain/models"
)

func TestFraudVerdictThresholdIsStrict(t *testing.T) {
	assert.Equal(t, models.LabelFraud, FraudVerdict(0.951).Prediction)
	assert.Equal(t, models.LabelNotFraud, FraudVerdict(0.95).Prediction)
	assert.Equal(t, models.LabelNotFraud, FraudVerdict(0).Prediction)
	assert.Equal(t, 0.951, FraudVerdict(0.951).Probability)
}

func TestMouseVerdict(t *testing.T) {
	v := MouseVerdict(models.OutlierOutput{Score: -0.12, Class: -1}, DefaultOutlierClass)
	assert.True(t, v.IsAnomaly)
	assert.Equal(t, models.LabelAnomalous, v.Label)
	assert.Equal(t, -0.12, v.AnomalyScore)

	v = MouseVerdict(models.OutlierOutput{Score: 0.3, Class: 1}, DefaultOutlierClass)
	assert.False(t, v.IsAnomaly)
	assert.Equal(t, models.LabelNormal, v.Label)

	v = MouseVerdict(models.OutlierOutput{Score: 0.3, Class: 1}, 1)
	assert.True(t, v.IsAnomaly)
}

func TestTabularVerdictsEchoLabels(t *testing.T) {
	one, zero := 1, 0
	out := models.ClassifierOutput{Predictions: []int{1, 0, 1}, Probabilities: []float64{0.9, 0.1, 0.7}}

	got, err := TabularVerdicts(out, []*int{&one, nil, &zero})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].PredictedIsAnomaly)
	assert.Equal(t, 0.9, got[0].AnomalyProbability)
	assert.Equal(t, &one, got[0].IsAnomaly)
	assert.Nil(t, got[1].IsAnomaly)
	assert.Equal(t, &zero, got[2].IsAnomaly)
}

func TestTabularVerdictsLengthMismatch(t *testing.T) {
	_, err := TabularVerdicts(models.ClassifierOutput{Predictions: []int{1}, Probabilities: []float64{0.2, 0.3}}, nil)
	assert.Error(t, err)

	_, err = TabularVerdicts(models.ClassifierOutput{Predictions: []int{1}, Probabilities: []float64{0.2}}, []*int{nil, nil})
	assert.Error(t, err)
}
