// Package decision turns raw model outputs into verdicts.
package decision

import (
	"fmt"

	"RiskScore/internal/domain/models"
)

// FraudThreshold is the probability a transaction must strictly exceed to
// be labelled FRAUD.
const FraudThreshold = 0.95

// DefaultOutlierClass is the class an isolation-style outlier model
// predicts for anomalies.
const DefaultOutlierClass = -1

// MouseVerdict labels the outlier-model output. The score is passed through.
func MouseVerdict(out models.OutlierOutput, outlierClass int) models.MouseVerdict {
	v := models.MouseVerdict{AnomalyScore: out.Score, Label: models.LabelNormal}
	if out.Class == outlierClass {
		v.IsAnomaly = true
		v.Label = models.LabelAnomalous
	}
	return v
}

// FraudVerdict labels a fraud probability.
func FraudVerdict(probability float64) models.FraudVerdict {
	label := models.LabelNotFraud
	if probability > FraudThreshold {
		label = models.LabelFraud
	}
	return models.FraudVerdict{Prediction: label, Probability: probability}
}

// TabularVerdicts pairs each prediction with its probability and echoes the
// ground-truth label of the same row. Lengths must agree.
func TabularVerdicts(out models.ClassifierOutput, labels []*int) ([]models.TabularVerdict, error) {
	n := len(out.Predictions)
	if len(out.Probabilities) != n {
		return nil, fmt.Errorf("classifier returned %d predictions and %d probabilities", n, len(out.Probabilities))
	}
	if labels != nil && len(labels) != n {
		return nil, fmt.Errorf("classifier returned %d rows for %d records", n, len(labels))
	}
	verdicts := make([]models.TabularVerdict, n)
	for i := range n {
		verdicts[i] = models.TabularVerdict{
			PredictedIsAnomaly: out.Predictions[i],
			AnomalyProbability: out.Probabilities[i],
		}
		if labels != nil {
			verdicts[i].IsAnomaly = labels[i]
		}
	}
	return verdicts, nil
}
