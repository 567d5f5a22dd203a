// Package artifacts loads the training-time artifacts the scoring paths
// depend on: the categorical encoding table, the persisted scaler, the
// tabular feature schema and the mouse model's outlier class.
package artifacts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"RiskScore/internal/services/decision"
	"RiskScore/internal/services/features"
)

// File is the on-disk layout of the artifact file.
type File struct {
	Version string `yaml:"version"`
	Mouse   struct {
		OutlierClass *int `yaml:"outlier_class"`
	} `yaml:"mouse"`
	Tabular struct {
		FeatureColumns []string               `yaml:"feature_columns"`
		Encoding       features.EncodingTable `yaml:"encoding"`
		Scaler         features.Scaler        `yaml:"scaler"`
	} `yaml:"tabular"`
}

// Registry is the immutable, validated view of an artifact file. It is
// built once at startup and shared read-only by every request.
type Registry struct {
	version      string
	outlierClass int
	encoder      *features.Encoder
}

// Load reads and validates the artifact file at path.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifacts: %w", err)
	}
	reg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("artifacts %s: %w", path, err)
	}
	return reg, nil
}

// Parse builds a Registry from the YAML content of an artifact file.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse artifacts: %w", err)
	}
	return New(f)
}

// New validates f and builds a Registry from it.
func New(f File) (*Registry, error) {
	enc, err := features.NewEncoder(f.Tabular.FeatureColumns, f.Tabular.Encoding, f.Tabular.Scaler)
	if err != nil {
		return nil, fmt.Errorf("tabular artifacts: %w", err)
	}
	reg := &Registry{
		version:      f.Version,
		outlierClass: decision.DefaultOutlierClass,
		encoder:      enc,
	}
	if f.Mouse.OutlierClass != nil {
		reg.outlierClass = *f.Mouse.OutlierClass
	}
	return reg, nil
}

func (r *Registry) Version() string { return r.version }

// OutlierClass is the mouse model's predicted class for anomalies.
func (r *Registry) OutlierClass() int { return r.outlierClass }

// Encoder returns the tabular encoder built from the artifacts.
func (r *Registry) Encoder() *features.Encoder { return r.encoder }
