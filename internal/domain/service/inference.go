package service

import (
	"context"

	"RiskScore/internal/domain/models"
)

// MouseModel scores a kinematic feature vector with the outlier model.
type MouseModel interface {
	Score(ctx context.Context, v models.KinematicFeatureVector) (models.OutlierOutput, error)
}

// FraudModel returns the fraud probability for one transaction row.
type FraudModel interface {
	Predict(ctx context.Context, row models.FraudFeatureRow) (float64, error)
}

// TabularModel classifies every row of an encoded feature matrix.
type TabularModel interface {
	Classify(ctx context.Context, m models.FeatureMatrix) (models.ClassifierOutput, error)
}
