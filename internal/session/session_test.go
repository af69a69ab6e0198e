package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"gpthome/internal/eventlog"
	"gpthome/internal/observe"
	"gpthome/internal/wake"
	"gpthome/pkg/stt"
)

type result struct {
	text string
	err  error
}

// scriptedTranscriber returns one scripted result per call; past the end it
// cancels the loop.
type scriptedTranscriber struct {
	script []result
	calls  int
	cancel context.CancelFunc
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context) (string, error) {
	if s.calls >= len(s.script) {
		if s.cancel != nil {
			s.cancel()
		}
		<-ctx.Done()
		return "", ctx.Err()
	}
	r := s.script[s.calls]
	s.calls++
	return r.text, r.err
}

type fakeCompleter struct {
	queries []string
	reply   string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, q string) (string, error) {
	f.queries = append(f.queries, q)
	return f.reply, f.err
}

type phaseCall struct {
	text     string
	errStyle bool
}

type fakeNarrator struct {
	calls  []phaseCall
	failOn string
	err    error
}

func (f *fakeNarrator) Phase(_ context.Context, text string, errStyle bool) error {
	f.calls = append(f.calls, phaseCall{text, errStyle})
	if f.failOn != "" && text == f.failOn {
		return f.err
	}
	return nil
}

type fakeStatus struct {
	mu      sync.Mutex
	labels  []string
	stopped int
}

func (f *fakeStatus) ShowStatus(ctx context.Context, label string) error {
	f.mu.Lock()
	f.labels = append(f.labels, label)
	f.mu.Unlock()
	<-ctx.Done()
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
	return nil
}

type fakeChime struct{ plays int }

func (f *fakeChime) Play(context.Context) error {
	f.plays++
	return errors.New("no chime file")
}

type harness struct {
	trans    *scriptedTranscriber
	llm      *fakeCompleter
	narrator *fakeNarrator
	status   *fakeStatus
	elog     *eventlog.Log
	reader   *sdkmetric.ManualReader
	loop     *Loop
}

func newHarness(t *testing.T, script ...result) *harness {
	t.Helper()

	elog, err := eventlog.Open(afero.NewMemMapFs(), "/var/log/gpthome/events.log")
	require.NoError(t, err)
	t.Cleanup(func() { elog.Close() })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	h := &harness{
		trans:    &scriptedTranscriber{script: script},
		llm:      &fakeCompleter{reply: "It is noon."},
		narrator: &fakeNarrator{},
		status:   &fakeStatus{},
		elog:     elog,
		reader:   reader,
	}
	h.loop, err = New(&Config{
		Transcriber: h.trans,
		Completer:   h.llm,
		Narrator:    h.narrator,
		Status:      h.status,
		Log:         elog,
		Metrics:     metrics,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) entries(t *testing.T) []eventlog.Entry {
	t.Helper()
	es, err := h.elog.Tail(0)
	require.NoError(t, err)
	return es
}

func kinds(es []eventlog.Entry) []string {
	var out []string
	for _, e := range es {
		out = append(out, string(e.Kind)+": "+e.Text)
	}
	return out
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&Config{})
	assert.EqualError(t, err, "transcriber is nil")
}

func TestIterate_Answered(t *testing.T) {
	h := newHarness(t, result{text: "hey computer what time is it"})
	h.loop.Iterate(context.Background())

	assert.Equal(t, []string{"what time is it"}, h.llm.queries)
	assert.Equal(t, []phaseCall{
		{"Heard: what time is it", false},
		{"It is noon.", false},
	}, h.narrator.calls)
	assert.Equal(t, []string{"Heard: what time is it", "Response: It is noon."}, kinds(h.entries(t)))
}

func TestIterate_NoWakeWordDoesNothing(t *testing.T) {
	for _, text := range []string{"what time is it", "please computer   ", "Computer lights"} {
		t.Run(text, func(t *testing.T) {
			h := newHarness(t, result{text: text})
			h.loop.Iterate(context.Background())

			assert.Empty(t, h.llm.queries)
			assert.Empty(t, h.narrator.calls)
			assert.Empty(t, h.entries(t))
		})
	}
}

func TestIterate_ListeningStatusEndsWithTranscription(t *testing.T) {
	h := newHarness(t, result{text: "nothing"})
	h.loop.Iterate(context.Background())

	assert.Equal(t, []string{ListeningLabel}, h.status.labels)
	assert.Equal(t, 1, h.status.stopped)
}

func TestIterate_FailureCategories(t *testing.T) {
	reqErr := &stt.RequestError{Backend: "openai", Err: errors.New("503 Service Unavailable")}

	tests := []struct {
		name      string
		sttErr    error
		llmErr    error
		failPhase string
		want      string
		category  string
		queries   int
	}{
		{
			name:     "unknown value",
			sttErr:   stt.ErrUnknownValue,
			want:     "Sorry, I did not understand that",
			category: "unknown_value",
		},
		{
			name:     "wrapped unknown value",
			sttErr:   errors.Join(errors.New("whisper"), stt.ErrUnknownValue),
			want:     "Sorry, I did not understand that",
			category: "unknown_value",
		},
		{
			name:     "request error",
			sttErr:   reqErr,
			want:     "Could not request results; openai recognition request failed: 503 Service Unavailable",
			category: "request",
		},
		{
			name:     "capture failure",
			sttErr:   errors.New("capture: device busy"),
			want:     "Something Went Wrong: capture: device busy",
			category: "other",
		},
		{
			name:     "completion failure",
			llmErr:   errors.New("chat completion: 429"),
			want:     "Something Went Wrong: chat completion: 429",
			category: "other",
			queries:  1,
		},
		{
			name:      "heard phase failure",
			failPhase: "Heard: turn on the lights",
			want:      "Something Went Wrong: speaker gone",
			category:  "other",
			queries:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, result{text: "computer turn on the lights", err: tt.sttErr})
			h.llm.err = tt.llmErr
			if tt.failPhase != "" {
				h.narrator.failOn = tt.failPhase
				h.narrator.err = errors.New("speaker gone")
			}

			h.loop.Iterate(context.Background())

			assert.Len(t, h.llm.queries, tt.queries)

			var errorPhases []phaseCall
			for _, c := range h.narrator.calls {
				if c.errStyle {
					errorPhases = append(errorPhases, c)
				}
			}
			assert.Equal(t, []phaseCall{{tt.want, true}}, errorPhases)
			assert.Equal(t, []string{"Error: " + tt.want}, kinds(h.entries(t)))

			assert.Equal(t, map[string]int64{tt.category: 1}, countsBy(t, h.reader, "gpthome.session.errors", "category"))
		})
	}
}

func TestIterate_ResponsePhaseFailureKeepsHeardEntry(t *testing.T) {
	h := newHarness(t, result{text: "computer hi"})
	h.narrator.failOn = "It is noon."
	h.narrator.err = errors.New("i2c write")

	h.loop.Iterate(context.Background())

	assert.Equal(t, []string{"Heard: hi", "Error: Something Went Wrong: i2c write"}, kinds(h.entries(t)))
}

func TestIterate_CancelledIsNotAnnounced(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.trans.cancel = cancel

	h.loop.Iterate(ctx)

	assert.Empty(t, h.narrator.calls)
	assert.Empty(t, h.entries(t))
}

func TestRun_ContinuesAfterFailures(t *testing.T) {
	h := newHarness(t,
		result{err: stt.ErrUnknownValue},
		result{err: stt.ErrUnknownValue},
		result{text: "computer tell me a joke"},
		result{text: "background chatter"},
	)
	ctx, cancel := context.WithCancel(context.Background())
	h.trans.cancel = cancel

	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	assert.Equal(t, []string{
		"Error: Sorry, I did not understand that",
		"Error: Sorry, I did not understand that",
		"Heard: tell me a joke",
		"Response: It is noon.",
	}, kinds(h.entries(t)))
	assert.Equal(t, map[string]int64{"failed": 2, "answered": 1, "skipped": 1},
		countsBy(t, h.reader, "gpthome.session.iterations", "outcome"))
}

func TestIterate_ChimeFailureIsIgnored(t *testing.T) {
	h := newHarness(t, result{text: "computer hi"})
	chime := &fakeChime{}
	h.loop.chime = chime

	h.loop.Iterate(context.Background())

	assert.Equal(t, 1, chime.plays)
	assert.Equal(t, []string{"Heard: hi", "Response: It is noon."}, kinds(h.entries(t)))
}

func TestIterate_CustomWakeMatcher(t *testing.T) {
	h := newHarness(t, result{text: "computor dim the lights"})
	h.loop.wake = wake.Matcher{IgnoreCase: true, Phonetic: true}

	h.loop.Iterate(context.Background())

	assert.Equal(t, []string{"dim the lights"}, h.llm.queries)
}

func TestDescribe(t *testing.T) {
	msg, cat := Describe(errors.New("boom"))
	assert.Equal(t, "Something Went Wrong: boom", msg)
	assert.Equal(t, "other", cat)
}

func countsBy(t *testing.T, reader *sdkmetric.ManualReader, name, key string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key(key))
				out[v.AsString()] = dp.Value
			}
		}
	}
	return out
}
