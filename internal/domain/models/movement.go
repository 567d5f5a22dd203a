package models

// MovementSample is one pointer position captured at time TimeMs.
// Samples are order-significant; duplicate timestamps are valid.
type MovementSample struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	TimeMs float64 `json:"time_ms"`
}

// KinematicFeatureVector is the fixed-width summary of a movement trace.
type KinematicFeatureVector struct {
	MeanVelocity     float64 `json:"mean_velocity"`
	StdVelocity      float64 `json:"std_velocity"`
	MeanAcceleration float64 `json:"mean_acceleration"`
	StdAcceleration  float64 `json:"std_acceleration"`
	TotalDuration    float64 `json:"total_duration"`
	NumPoints        int     `json:"num_points"`
}

// KinematicColumns is the column order the mouse model was trained on.
var KinematicColumns = []string{
	"mean_velocity",
	"std_velocity",
	"mean_acceleration",
	"std_acceleration",
	"total_duration",
	"num_points",
}

// Values returns the vector in KinematicColumns order.
func (v KinematicFeatureVector) Values() []float64 {
	return []float64{
		v.MeanVelocity,
		v.StdVelocity,
		v.MeanAcceleration,
		v.StdAcceleration,
		v.TotalDuration,
		float64(v.NumPoints),
	}
}
