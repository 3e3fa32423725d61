package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8, cfg.Keys.MaxPaired)
	assert.False(t, cfg.Keys.OverwriteOldest)
	assert.Equal(t, 16, cfg.Persist.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Persist.StopTimeout.Duration())
	assert.Equal(t, filepath.Join("./data", "blekeys.db"), cfg.Storage.DBPath())
}

func TestKeysConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     KeysConfig
		wantErr bool
	}{
		{"default", DefaultKeysConfig(), false},
		{"zero capacity", DefaultKeysConfig().WithMaxPaired(0), true},
		{"over limit", DefaultKeysConfig().WithMaxPaired(MaxPairedLimit + 1), true},
		{"save aging without overwrite", DefaultKeysConfig().WithSaveAgingCounter(true), true},
		{"save aging with overwrite", DefaultKeysConfig().WithOverwriteOldest(true).WithSaveAgingCounter(true), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubConfigs_Validate(t *testing.T) {
	assert.Error(t, DefaultPersistConfig().WithQueueSize(0).Validate())
	assert.Error(t, DefaultPersistConfig().WithStopTimeout(-time.Second).Validate())
	assert.Error(t, DefaultStorageConfig().WithDataDir("").Validate())
	assert.Error(t, DefaultResolvingListConfig().WithSize(0).Validate())
	assert.NoError(t, ResolvingListConfig{Enable: false}.Validate())
	assert.Error(t, MetricsConfig{Enable: true}.Validate())
	assert.Error(t, LogConfig{Level: "loud"}.Validate())
	assert.Error(t, LogConfig{Format: "xml"}.Validate())
}

func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"keys": {"max_paired": 2, "overwrite_oldest": true},
		"persist": {"stop_timeout": "250ms"},
		"storage": {"data_dir": "/var/lib/blekeys"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Keys.MaxPaired)
	assert.True(t, cfg.Keys.OverwriteOldest)
	assert.Equal(t, 250*time.Millisecond, cfg.Persist.StopTimeout.Duration())
	// 未出现的字段保持默认
	assert.Equal(t, 16, cfg.Persist.QueueSize)
	assert.Equal(t, "/var/lib/blekeys", cfg.Storage.DataDir)
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON([]byte(`{"keys": {"max_paired": 0}}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"unknown": 1}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"persist": {"stop_timeout": "soon"}}`))
	assert.Error(t, err)
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
keys:
  max_paired: 4
  central: true
  privacy: true
persist:
  queue_size: 32
  stop_timeout: 2s
storage:
  gc_interval: 0
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Keys.MaxPaired)
	assert.True(t, cfg.Keys.Central)
	assert.True(t, cfg.Keys.Privacy)
	assert.Equal(t, 32, cfg.Persist.QueueSize)
	assert.Equal(t, 2*time.Second, cfg.Persist.StopTimeout.Duration())
	assert.Zero(t, cfg.Storage.GCInterval)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFromYAML_Empty(t *testing.T) {
	cfg, err := FromYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "blekeys.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("keys:\n  max_paired: 3\n"), 0o600))
	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Keys.MaxPaired)

	jsonPath := filepath.Join(dir, "blekeys.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"keys":{"max_paired":5}}`), 0o600))
	cfg, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Keys.MaxPaired)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestConfig_SerializeRoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Keys = cfg.Keys.WithMaxPaired(6).WithRoles(true, true)

	y, err := cfg.ToYAML()
	require.NoError(t, err)
	fromY, err := FromYAML(y)
	require.NoError(t, err)
	assert.Equal(t, cfg, fromY)

	j, err := cfg.ToJSON()
	require.NoError(t, err)
	fromJ, err := FromJSON(j)
	require.NoError(t, err)
	assert.Equal(t, cfg, fromJ)
}

func TestDuration_Numeric(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`1000000`)))
	assert.Equal(t, time.Millisecond, d.Duration())
	assert.Equal(t, "1ms", d.String())
}
