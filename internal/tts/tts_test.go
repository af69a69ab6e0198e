package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDucker struct {
	calls   []string
	duckErr error
}

func (f *fakeDucker) Duck(context.Context, float64, time.Duration) error {
	f.calls = append(f.calls, "duck")
	return f.duckErr
}

func (f *fakeDucker) Restore(context.Context, time.Duration) error {
	f.calls = append(f.calls, "restore")
	return nil
}

func TestDucked_WrapsSpeech(t *testing.T) {
	d := &fakeDucker{}
	var spoken []string
	s := &Ducked{
		Ducker: d,
		Speaker: Func(func(_ context.Context, text string) error {
			d.calls = append(d.calls, "speak")
			spoken = append(spoken, text)
			return nil
		}),
	}

	require.NoError(t, s.Speak(context.Background(), "hello"))
	assert.Equal(t, []string{"duck", "speak", "restore"}, d.calls)
	assert.Equal(t, []string{"hello"}, spoken)
}

func TestDucked_DuckFailureDoesNotFailSpeech(t *testing.T) {
	d := &fakeDucker{duckErr: errors.New("no pulseaudio")}
	s := &Ducked{Ducker: d, Speaker: Func(func(context.Context, string) error { return nil })}

	assert.NoError(t, s.Speak(context.Background(), "hi"))
	assert.Equal(t, []string{"duck", "restore"}, d.calls)
}

func TestDucked_RestoresAfterSpeechError(t *testing.T) {
	d := &fakeDucker{}
	boom := errors.New("boom")
	s := &Ducked{Ducker: d, Speaker: Func(func(context.Context, string) error { return boom })}

	assert.ErrorIs(t, s.Speak(context.Background(), "hi"), boom)
	assert.Equal(t, []string{"duck", "restore"}, d.calls)
}

func TestSilent(t *testing.T) {
	assert.NoError(t, Silent{}.Speak(context.Background(), "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Silent{}.Speak(ctx, "x"), context.Canceled)
}

type recordingPlayer struct {
	data []byte
}

func (p *recordingPlayer) PlayMP3(_ context.Context, r io.ReadCloser) error {
	defer r.Close()
	var err error
	p.data, err = io.ReadAll(r)
	return err
}

func newTestClient(t *testing.T, h http.HandlerFunc) openai.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
}

func TestOpenAI_Speak(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake"))
	})

	player := &recordingPlayer{}
	s := NewOpenAI(client, player, OpenAIOptions{Voice: "nova", Speed: 1.25})

	require.NoError(t, s.Speak(context.Background(), "Heard: hello"))
	assert.Equal(t, "ID3fake", string(player.data))
	assert.Equal(t, "Heard: hello", got["input"])
	assert.Equal(t, "tts-1", got["model"])
	assert.Equal(t, "nova", got["voice"])
	assert.Equal(t, "mp3", got["response_format"])
	assert.InDelta(t, 1.25, got["speed"], 1e-9)
	assert.NotContains(t, got, "instructions")
}

func TestOpenAI_SpeakError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	player := &recordingPlayer{}
	err := NewOpenAI(client, player, OpenAIOptions{}).Speak(context.Background(), "x")

	var apiErr *openai.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Nil(t, player.data)
}

func TestOpenAI_EmptyTextIsNoop(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	assert.NoError(t, NewOpenAI(client, &recordingPlayer{}, OpenAIOptions{}).Speak(context.Background(), ""))
}
