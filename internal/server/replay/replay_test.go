package replay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestGuard(t *testing.T, ttl time.Duration) *Guard {
	t.Helper()

	g, err := Open(filepath.Join(t.TempDir(), "replay.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = g.Close()
	})

	return g
}

func TestGuard_MarkSeen(t *testing.T) {
	g := setupTestGuard(t, 5*time.Minute)
	now := time.Unix(1700000000, 0)

	seen, err := g.MarkSeen("payload-hash-1", now)
	require.NoError(t, err)
	assert.False(t, seen)

	// Повтор того же payload в пределах окна
	seen, err = g.MarkSeen("payload-hash-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, seen)

	// Другой payload проходит
	seen, err = g.MarkSeen("payload-hash-2", now)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestGuard_MarkSeen_ExpiredFingerprint(t *testing.T) {
	g := setupTestGuard(t, 5*time.Minute)
	now := time.Unix(1700000000, 0)

	seen, err := g.MarkSeen("payload-hash", now)
	require.NoError(t, err)
	assert.False(t, seen)

	// После истечения ttl отпечаток считается новым
	seen, err = g.MarkSeen("payload-hash", now.Add(6*time.Minute))
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestGuard_Prune(t *testing.T) {
	g := setupTestGuard(t, 5*time.Minute)
	now := time.Unix(1700000000, 0)

	_, err := g.MarkSeen("old-1", now)
	require.NoError(t, err)
	_, err = g.MarkSeen("old-2", now)
	require.NoError(t, err)
	_, err = g.MarkSeen("fresh", now.Add(10*time.Minute))
	require.NoError(t, err)

	pruned, err := g.Prune(now.Add(10 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)

	// Свежий отпечаток остался и все еще детектит повтор
	seen, err := g.MarkSeen("fresh", now.Add(11*time.Minute))
	require.NoError(t, err)
	assert.True(t, seen)
}
