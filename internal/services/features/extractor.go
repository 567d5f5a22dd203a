package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"RiskScore/internal/domain/models"
)

// ExtractKinematics summarizes an ordered movement trace into a
// KinematicFeatureVector.
//
// Row 0 has no predecessor: its deltas are 0 and its dt is 1, so it
// contributes a 0 velocity and a 0 acceleration to the aggregates. A zero
// time delta is replaced with 1, which keeps every rate finite but means the
// units are only approximate across duplicate timestamps.
func ExtractKinematics(samples []models.MovementSample) models.KinematicFeatureVector {
	n := len(samples)
	if n < 2 {
		v := models.KinematicFeatureVector{NumPoints: n}
		if n == 1 {
			v.TotalDuration = finiteOrZero(samples[0].TimeMs)
		}
		return v
	}

	velocity := make([]float64, n)
	acceleration := make([]float64, n)
	for i := 1; i < n; i++ {
		dx := samples[i].X - samples[i-1].X
		dy := samples[i].Y - samples[i-1].Y
		dt := samples[i].TimeMs - samples[i-1].TimeMs
		if dt == 0 {
			dt = 1
		}
		velocity[i] = math.Sqrt(dx*dx+dy*dy) / dt
		// uses the unsanitized previous velocity
		acceleration[i] = (velocity[i] - velocity[i-1]) / dt
	}
	sanitize(velocity)
	sanitize(acceleration)

	meanV, stdV := meanStd(velocity)
	meanA, stdA := meanStd(acceleration)
	return models.KinematicFeatureVector{
		MeanVelocity:     meanV,
		StdVelocity:      stdV,
		MeanAcceleration: meanA,
		StdAcceleration:  stdA,
		TotalDuration:    finiteOrZero(samples[n-1].TimeMs),
		NumPoints:        n,
	}
}

// meanStd returns the mean and the sample standard deviation of xs.
// The deviation is 0 when fewer than two values exist.
func meanStd(xs []float64) (float64, float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return finiteOrZero(xs[0]), 0
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return finiteOrZero(mean), finiteOrZero(std)
}

func sanitize(xs []float64) {
	for i, x := range xs {
		xs[i] = finiteOrZero(x)
	}
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
