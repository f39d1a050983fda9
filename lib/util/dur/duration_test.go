package dur

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`2000`), &d))
	assert.Equal(t, 2*time.Microsecond, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))

	out, err := json.Marshal(Duration(3 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"3s"`, string(out))
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		Timeout Duration `yaml:"timeout"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("timeout: 250ms\n"), &v))
	assert.Equal(t, 250*time.Millisecond, v.Timeout.Duration())
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("5s")))
	assert.Equal(t, 5*time.Second, d.Duration())
	assert.Error(t, d.UnmarshalText([]byte("")))
}
