package session

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/stickcarrier/game/engine"
	"github.com/wricardo/stickcarrier/game/level"
)

func readAll(t *testing.T, dir string) []JournalEntry {
	t.Helper()
	files, err := JournalFiles(dir)
	require.NoError(t, err)

	var out []JournalEntry
	for _, f := range files {
		require.NoError(t, ReadJournal(f, func(e JournalEntry) error {
			out = append(out, e)
			return nil
		}))
	}
	return out
}

func TestJournal_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	pos := engine.Vec3{X: 2, Z: 1}
	require.NoError(t, j.Record("ab12", level.Event{Type: level.EventMove, Level: "level1", Position: &pos, To: "east"}))
	require.NoError(t, j.Record("ab12", level.Event{Type: level.EventWinFinalized, Level: "level1", Score: 88}))
	require.NoError(t, j.Close())

	entries := readAll(t, dir)
	require.Len(t, entries, 2)
	assert.Equal(t, "ab12", entries[0].Session)
	assert.Equal(t, level.EventMove, entries[0].Event.Type)
	require.NotNil(t, entries[0].Event.Position)
	assert.Equal(t, pos, *entries[0].Event.Position)
	assert.Equal(t, 88, entries[1].Event.Score)
}

func TestJournal_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	j.now = func() time.Time { return clock }

	require.NoError(t, j.Record("s1", level.Event{Type: level.EventRotate}))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, j.Record("s1", level.Event{Type: level.EventDrop}))
	require.NoError(t, j.Close())

	files, err := JournalFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files[0], "events-2026-03-01-10")
	assert.Contains(t, files[1], "events-2026-03-01-11")

	entries := readAll(t, dir)
	require.Len(t, entries, 2)
	assert.Equal(t, level.EventRotate, entries[0].Event.Type)
	assert.Equal(t, level.EventDrop, entries[1].Event.Type)
}

func TestJournal_AppendsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		j := NewJournal(dir)
		require.NoError(t, j.Record("s1", level.Event{Type: level.EventBlocked}))
		require.NoError(t, j.Close())
	}
	assert.Len(t, readAll(t, dir), 2)
}

func TestReadJournal_StopEarlyAndErrors(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record("s1", level.Event{Type: level.EventState}))
	}
	require.NoError(t, j.Close())

	files, err := JournalFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	n := 0
	err = ReadJournal(files[0], func(JournalEntry) error {
		n++
		if n == 2 {
			return io.EOF
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Error(t, ReadJournal(dir+"/missing.jsonl.zst", func(JournalEntry) error { return nil }))

	garbage := dir + "/garbage.jsonl.zst"
	require.NoError(t, os.WriteFile(garbage, []byte("not zstd"), 0644))
	assert.Error(t, ReadJournal(garbage, func(JournalEntry) error { return nil }))
}
