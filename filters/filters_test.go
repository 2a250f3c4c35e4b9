package filters

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFilters(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "filters.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSkipsCommentsAndInvalidLines(t *testing.T) {
	path := writeFilters(t, t.TempDir(), `
# spam bots
bigfollows\.com
buy followers
[unclosed
`)
	s, err := NewStore(path, true, false)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len(), "invalid line must be skipped, comments ignored")
	assert.True(t, s.Contaminated("get viewers at bigfollows.com today"))
	assert.True(t, s.Contaminated("buy followers cheap"))
	assert.False(t, s.Contaminated("hello chat"))
}

func TestMissingFileMeansEmptySet(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "nope.txt"), true, false)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contaminated("anything"))
}

func TestDisabledStoreMatchesNothing(t *testing.T) {
	path := writeFilters(t, t.TempDir(), "spam")
	s, err := NewStore(path, false, false)
	require.NoError(t, err)

	assert.False(t, s.Contaminated("spam spam spam"))
	assert.True(t, s.Toggle())
	assert.True(t, s.Contaminated("spam spam spam"))
	assert.False(t, s.Toggle())
	assert.False(t, s.Contaminated("spam spam spam"))
}

func TestReversedInvertsMatching(t *testing.T) {
	path := writeFilters(t, t.TempDir(), "keepme")
	s, err := NewStore(path, true, false)
	require.NoError(t, err)

	assert.True(t, s.Reverse())
	assert.True(t, s.Reversed())
	assert.False(t, s.Contaminated("please keepme around"), "matching lines survive in reversed mode")
	assert.True(t, s.Contaminated("ordinary chatter"), "non-matching lines are dropped in reversed mode")
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFilters(t, dir, "old_pattern")
	s, err := NewStore(path, true, false)
	require.NoError(t, err)
	require.True(t, s.Contaminated("old_pattern here"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Watch(ctx)
	}()
	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("new_pattern"), 0o644))

	assert.Eventually(t, func() bool {
		return s.Contaminated("new_pattern here") && !s.Contaminated("old_pattern here")
	}, 3*time.Second, 20*time.Millisecond, "watcher should pick up the rewritten file")

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not stop on cancel")
	}
}
