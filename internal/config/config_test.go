package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, format validations and defaults.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing API URL.
	require.Error(t, Validate(new(Config)))

	// Relative API URL.
	require.Error(t, Validate(&Config{APIURL: "maintenance/"}))

	// Unknown backend.
	settings := &Config{
		APIURL: "https://factory.local/api",
		Cache:  CacheConfig{Backend: "etcd"},
	}
	require.Error(t, Validate(settings))

	// Redis without address.
	settings = &Config{
		APIURL: "https://factory.local/api",
		Cache:  CacheConfig{Backend: BackendRedis},
	}
	require.ErrorIs(t, Validate(settings), errRedisAddressRequired)

	// Unknown log format.
	settings = &Config{APIURL: "https://factory.local/api", LogFormat: "xml"}
	require.ErrorIs(t, Validate(settings), errUnknownLogFormat)

	// Defaults.
	settings = &Config{APIURL: "https://factory.local/api"}
	require.NoError(t, Validate(settings))
	require.Equal(t, "https://factory.local/api/", settings.APIURL)
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultControlAddress, settings.ControlAddress)
	require.Equal(t, BackendSQLite, settings.Cache.Backend)
	require.Equal(t, DefaultCacheFilename, settings.Cache.Path)
	require.Equal(t, DefaultMaxAlerts, settings.Cache.MaxAlerts)
	require.Equal(t, DefaultServiceWorkerPath, settings.Push.ServiceWorkerPath)
	require.Equal(t, DefaultScope, settings.Push.Scope)
	require.Equal(t, 1, settings.FailureThreshold)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		APIURL:     "https://factory.local/api/",
		EmployeeID: "42",
		Cache: CacheConfig{
			Backend:      BackendRedis,
			RedisAddress: "127.0.0.1:6379",
		},
		Push: PushConfig{
			Endpoint:   "https://push.local/device/1",
			Permission: "granted",
		},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.APIURL, loaded.APIURL)
	require.Equal(t, settings.EmployeeID, loaded.EmployeeID)
	require.Equal(t, settings.Cache, loaded.Cache)
	require.Equal(t, settings.Push, loaded.Push)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestSave_Nil rejects a nil configuration.
func TestSave_Nil(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil), errConfigIsNotSet)
}
