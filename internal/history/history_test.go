package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s := Open(path, 50)
	require.Empty(t, s.Entries())

	require.NoError(t, s.Add("first", base))
	require.NoError(t, s.Add("second", base.Add(time.Minute)))

	reloaded := Open(path, 50)
	entries := reloaded.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "second", entries[0].Text, "most recent first")
	require.Equal(t, "first", entries[1].Text)
	require.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
}

func TestStoreTruncatesToLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	base := time.Now()

	s := Open(path, 3)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(string(rune('a'+i)), base.Add(time.Duration(i)*time.Second)))
	}

	entries := s.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "e", entries[0].Text)
	require.Equal(t, "c", entries[2].Text)
}

func TestStoreLowerLimitOnReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	s := Open(path, 10)
	for i := 0; i < 6; i++ {
		require.NoError(t, s.Add("entry", time.Now()))
	}

	reloaded := Open(path, 2)
	require.Len(t, reloaded.Entries(), 2)
}

func TestStoreIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := Open(path, 10)
	require.Empty(t, s.Entries())
	require.NoError(t, s.Add("fresh", time.Now()))
	require.Len(t, Open(path, 10).Entries(), 1)
}
