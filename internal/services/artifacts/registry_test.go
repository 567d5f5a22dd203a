package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArtifacts = `
version: "test-1"
mouse:
  outlier_class: 0
tabular:
  feature_columns: [failed_logins, ip_class, bytes_out]
  encoding:
    ip_class:
      residential: 0
      datacenter: 1
  scaler:
    mean: {failed_logins: 1.5, bytes_out: 2048}
    scale: {failed_logins: 0.5, bytes_out: 1024}
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleArtifacts), 0o600))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-1", reg.Version())
	assert.Equal(t, 0, reg.OutlierClass())
	assert.Equal(t, []string{"failed_logins", "ip_class", "bytes_out"}, reg.Encoder().Columns())

	code, err := reg.Encoder().EncodeCategory("ip_class", "datacenter")
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestParseDefaultsOutlierClass(t *testing.T) {
	reg, err := Parse([]byte(`
tabular:
  feature_columns: [amount]
  scaler:
    mean: {amount: 0}
    scale: {amount: 1}
`))
	require.NoError(t, err)
	assert.Equal(t, -1, reg.OutlierClass())
}

func TestParseRejectsMissingScaler(t *testing.T) {
	_, err := Parse([]byte(`
tabular:
  feature_columns: [amount]
`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
