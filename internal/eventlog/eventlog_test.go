package eventlog

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) (*Log, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	l, err := Open(fs, "/var/log/gpthome/events.log")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	l.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return l, fs
}

func TestAppend_WritesTimestampedLines(t *testing.T) {
	l, fs := newTestLog(t)

	require.NoError(t, l.Append(KindHeard, "turn on the lights"))
	require.NoError(t, l.Append(KindResponse, "Okay, lights are on."))

	raw, err := afero.ReadFile(fs, l.Path())
	require.NoError(t, err)
	assert.Equal(t,
		"2024-05-01 12:00:01 Heard: turn on the lights\n"+
			"2024-05-01 12:00:02 Response: Okay, lights are on.\n",
		string(raw))
}

func TestAppend_FlattensNewlines(t *testing.T) {
	l, _ := newTestLog(t)

	require.NoError(t, l.Append(KindResponse, "line one\nline two\n\n  line three"))

	all, err := l.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(all, "\n"))
	assert.Contains(t, all, "Response: line one line two line three")
}

func TestAppend_IsAppendOnlyAcrossReopen(t *testing.T) {
	l, fs := newTestLog(t)
	require.NoError(t, l.Append(KindError, "Network not connected"))
	require.NoError(t, l.Close())

	again, err := Open(fs, l.Path())
	require.NoError(t, err)
	defer again.Close()
	require.NoError(t, again.Append(KindHeard, "hello"))

	entries, err := again.Tail(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, KindError, entries[0].Kind)
	assert.Equal(t, KindHeard, entries[1].Kind)
}

func TestAppend_AfterClose(t *testing.T) {
	l, _ := newTestLog(t)
	require.NoError(t, l.Close())
	assert.Error(t, l.Append(KindHeard, "late"))
}

func TestTail(t *testing.T) {
	l, _ := newTestLog(t)
	for _, s := range []string{"one", "two", "three", "four"} {
		require.NoError(t, l.Append(KindHeard, s))
	}

	entries, err := l.Tail(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].Text)
	assert.Equal(t, "four", entries[1].Text)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 4, 0, time.Local), entries[1].Time)
}

func TestSubscribe(t *testing.T) {
	l, _ := newTestLog(t)

	ch, cancel := l.Subscribe()
	require.NoError(t, l.Append(KindError, "Sorry, I did not understand that"))

	select {
	case e := <-ch:
		assert.Equal(t, KindError, e.Kind)
		assert.Equal(t, "Sorry, I did not understand that", e.Text)
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	require.NoError(t, l.Append(KindHeard, "after cancel"))
}

func TestParse(t *testing.T) {
	e, ok := Parse("2024-05-01 12:00:01 Error: Could not request results; timeout: 5s")
	require.True(t, ok)
	assert.Equal(t, KindError, e.Kind)
	assert.Equal(t, "Could not request results; timeout: 5s", e.Text)

	_, ok = Parse("garbage")
	assert.False(t, ok)
	_, ok = Parse("2024-05-01 12:00:01 no colon here")
	assert.False(t, ok)
}
