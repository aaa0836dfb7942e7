package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.json")
	mgr, err := NewManager(WithSettingsPath(path))
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "settings file not created")

	s := mgr.Get()
	assert.True(t, s.Enabled)
	assert.Equal(t, "0 17 * * *", s.Cron)

	s.Cron = "30 16 * * 1-5"
	data, _ := json.Marshal(s)
	require.NoError(t, mgr.UpdateFromJSON(string(data)))
	assert.Equal(t, "30 16 * * 1-5", mgr.Get().Cron)

	reopened, err := NewManager(WithSettingsPath(path))
	require.NoError(t, err)
	assert.Equal(t, "30 16 * * 1-5", reopened.Get().Cron)
}

func TestManagerRejectsInvalidSettings(t *testing.T) {
	mgr, err := NewManager(WithSettingsPath(filepath.Join(t.TempDir(), "digest.json")))
	require.NoError(t, err)

	bad := mgr.Get()
	bad.Cron = "every evening"
	assert.Error(t, mgr.Update(bad))

	bad = mgr.Get()
	bad.Timezone = "Mars/Olympus_Mons"
	assert.Error(t, mgr.Update(bad))

	assert.Equal(t, "0 17 * * *", mgr.Get().Cron)
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithSettingsPath(filepath.Join(dir, "digest.json")), WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan DigestSettings, 1)
	require.NoError(t, mgr.Watch(ctx, func(s DigestSettings) {
		reloaded <- s
	}))

	s := mgr.Get()
	s.Cron = "0 18 * * *"
	require.NoError(t, writeSettingsFile(mgr.Path(), s))

	select {
	case got := <-reloaded:
		assert.Equal(t, "0 18 * * *", got.Cron)
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on settings change")
	}
}
