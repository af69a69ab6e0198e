// Package session runs the listen, wake, complete and narrate loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"gpthome/internal/eventlog"
	"gpthome/internal/observe"
	"gpthome/internal/wake"
	"gpthome/pkg/stt"
)

const (
	ListeningLabel = "Listening"

	msgUnknownValue = "Sorry, I did not understand that"
	msgRequest      = "Could not request results; "
	msgOther        = "Something Went Wrong: "
)

type Transcriber interface {
	Transcribe(ctx context.Context) (string, error)
}

type Completer interface {
	Complete(ctx context.Context, query string) (string, error)
}

// Narrator speaks text while showing it. errStyle selects error rendering.
type Narrator interface {
	Phase(ctx context.Context, text string, errStyle bool) error
}

// StatusShower animates a status label until ctx is done.
type StatusShower interface {
	ShowStatus(ctx context.Context, label string) error
}

type EventLog interface {
	Append(kind eventlog.Kind, text string) error
}

type WakeMatcher interface {
	Match(utterance string) (string, bool)
}

type Chime interface {
	Play(ctx context.Context) error
}

type Config struct {
	Transcriber Transcriber
	Completer   Completer
	Narrator    Narrator
	Status      StatusShower
	Log         EventLog

	// Wake defaults to a case-sensitive match on "computer".
	Wake WakeMatcher
	// Chime, if set, plays before each capture.
	Chime   Chime
	Metrics *observe.Metrics
}

type Loop struct {
	transcriber Transcriber
	completer   Completer
	narrator    Narrator
	status      StatusShower
	elog        EventLog
	wake        WakeMatcher
	chime       Chime
	metrics     *observe.Metrics
}

func New(cfg *Config) (*Loop, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is nil")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is nil")
	}
	if cfg.Narrator == nil {
		return nil, fmt.Errorf("narrator is nil")
	}
	if cfg.Status == nil {
		return nil, fmt.Errorf("status is nil")
	}
	if cfg.Log == nil {
		return nil, fmt.Errorf("event log is nil")
	}

	l := &Loop{
		transcriber: cfg.Transcriber,
		completer:   cfg.Completer,
		narrator:    cfg.Narrator,
		status:      cfg.Status,
		elog:        cfg.Log,
		wake:        cfg.Wake,
		chime:       cfg.Chime,
		metrics:     cfg.Metrics,
	}
	if l.wake == nil {
		l.wake = wake.Matcher{Keyword: wake.DefaultKeyword}
	}
	if l.metrics == nil {
		m, err := observe.NewMetrics(noop.NewMeterProvider())
		if err != nil {
			return nil, err
		}
		l.metrics = m
	}
	return l, nil
}

// Run iterates until ctx is cancelled and then returns ctx.Err(). Failures
// inside an iteration are announced and never end the loop.
func (l *Loop) Run(ctx context.Context) error {
	log.Info("Session loop started")
	for {
		if err := ctx.Err(); err != nil {
			log.Info("Session loop stopped")
			return err
		}
		l.Iterate(ctx)
	}
}

// Iterate runs one listen and answer cycle.
func (l *Loop) Iterate(ctx context.Context) {
	logger := log.With("iteration", uuid.NewString())

	outcome, err := l.iterate(ctx, logger)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("Iteration cancelled", "error", err)
			return
		}
		l.fail(ctx, logger, err)
		outcome = "failed"
	}

	l.metrics.Iterations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (l *Loop) iterate(ctx context.Context, logger *log.Logger) (string, error) {
	utterance, err := l.listen(ctx, logger)
	if err != nil {
		return "", err
	}
	logger.Debug("Transcribed", "text", utterance)

	command, ok := l.wake.Match(utterance)
	if !ok {
		return "skipped", nil
	}
	logger.Info("Wake word detected", "command", command)

	start := time.Now()
	response, err := l.completer.Complete(ctx, command)
	l.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	logger.Info("Completion received", "response", response)

	if err := l.phase(ctx, "heard", "Heard: "+command, false); err != nil {
		return "", err
	}
	if err := l.elog.Append(eventlog.KindHeard, command); err != nil {
		return "", err
	}

	if err := l.phase(ctx, "response", response, false); err != nil {
		return "", err
	}
	if err := l.elog.Append(eventlog.KindResponse, response); err != nil {
		return "", err
	}

	return "answered", nil
}

// listen shows the listening indicator for as long as capture and
// transcription take.
func (l *Loop) listen(ctx context.Context, logger *log.Logger) (string, error) {
	sctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := l.status.ShowStatus(sctx, ListeningLabel); err != nil {
			logger.Warn("Failed to show status", "error", err)
		}
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	if l.chime != nil {
		if err := l.chime.Play(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Failed to play chime", "error", err)
		}
	}

	start := time.Now()
	text, err := l.transcriber.Transcribe(ctx)
	l.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	return text, err
}

func (l *Loop) phase(ctx context.Context, name, text string, errStyle bool) error {
	start := time.Now()
	err := l.narrator.Phase(ctx, text, errStyle)
	l.metrics.PhaseDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("phase", name)))
	return err
}

// fail announces err once and records it once.
func (l *Loop) fail(ctx context.Context, logger *log.Logger, err error) {
	msg, category := Describe(err)
	logger.Error("Iteration failed", "category", category, "error", err)
	l.metrics.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))

	if perr := l.phase(ctx, "error", msg, true); perr != nil {
		logger.Error("Failed to announce error", "error", perr)
	}
	if aerr := l.elog.Append(eventlog.KindError, msg); aerr != nil {
		logger.Error("Failed to write event log", "error", aerr)
	}
}

// Describe maps a failure to the sentence told to the user and a metric
// category.
func Describe(err error) (msg, category string) {
	var reqErr *stt.RequestError
	switch {
	case errors.Is(err, stt.ErrUnknownValue):
		return msgUnknownValue, "unknown_value"
	case errors.As(err, &reqErr):
		return msgRequest + reqErr.Error(), "request"
	default:
		return msgOther + err.Error(), "other"
	}
}
