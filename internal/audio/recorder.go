package audio

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate = 16000
	frameSize  = 320 // 20ms
	frameDur   = 20 * time.Millisecond
)

type RecorderConfig struct {
	SilenceThreshold float64       // frame RMS above which a frame counts as speech
	SilenceDuration  time.Duration // trailing silence that ends a phrase
	MaxPhrase        time.Duration // hard cap on one phrase
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = 0.015
	}
	if c.SilenceDuration <= 0 {
		c.SilenceDuration = 600 * time.Millisecond
	}
	if c.MaxPhrase <= 0 {
		c.MaxPhrase = 10 * time.Second
	}
	return c
}

// Recorder captures utterances from the default input device.
type Recorder struct {
	cfg RecorderConfig
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	return &Recorder{cfg: cfg.withDefaults()}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Listen blocks until speech starts, then records until the speaker pauses
// or MaxPhrase is reached. It implements stt.Source.
func (r *Recorder) Listen(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	seg := newSegmenter(r.cfg)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}
		if seg.push(buf) {
			return seg.out, nil
		}
	}
}

// segmenter is the energy VAD state machine shared by the capture loop and
// its tests: frames are dropped until one is loud enough, then everything is
// kept until enough quiet frames follow.
type segmenter struct {
	threshold     float64
	silenceFrames int
	maxFrames     int

	speaking bool
	quiet    int
	frames   int
	out      []float32
}

func newSegmenter(cfg RecorderConfig) *segmenter {
	return &segmenter{
		threshold:     cfg.SilenceThreshold,
		silenceFrames: int(cfg.SilenceDuration / frameDur),
		maxFrames:     int(cfg.MaxPhrase / frameDur),
		out:           make([]float32, 0, sampleRate*3),
	}
}

// push consumes one frame and reports whether the phrase is complete.
func (s *segmenter) push(frame []float32) bool {
	loud := frameRMS(frame) > s.threshold
	if !s.speaking {
		if !loud {
			return false
		}
		s.speaking = true
	}

	s.out = append(s.out, frame...)
	s.frames++

	if loud {
		s.quiet = 0
	} else {
		s.quiet++
		if s.quiet >= s.silenceFrames {
			return true
		}
	}
	return s.frames >= s.maxFrames
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
