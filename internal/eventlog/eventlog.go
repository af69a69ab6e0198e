// Package eventlog is the assistant's persistent, append-only event sink.
//
// Every heard command, every response and every error is written as one
// human-readable line:
//
//	2006-01-02 15:04:05 Heard: turn on the lights
//
// Lines are never rewritten or removed. The text before the first colon is the
// entry kind, which is what the web dashboard keys its colouring on.
package eventlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const timeLayout = "2006-01-02 15:04:05"

type Kind string

const (
	KindHeard    Kind = "Heard"
	KindResponse Kind = "Response"
	KindError    Kind = "Error"
)

type Entry struct {
	Time time.Time `json:"time"`
	Kind Kind      `json:"kind"`
	Text string    `json:"text"`
}

// Line renders the entry the way it is stored on disk.
func (e Entry) Line() string {
	return fmt.Sprintf("%s %s: %s", e.Time.Format(timeLayout), e.Kind, e.Text)
}

type Log struct {
	fs   afero.Fs
	path string
	now  func() time.Time

	mu   sync.Mutex
	file afero.File
	subs map[chan Entry]struct{}
}

// Open opens (creating if needed) the log file at path for appending.
func Open(fs afero.Fs, path string) (*Log, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log %q: %w", path, err)
	}
	return &Log{
		fs:   fs,
		path: path,
		now:  time.Now,
		file: f,
		subs: make(map[chan Entry]struct{}),
	}, nil
}

func (l *Log) Path() string { return l.path }

// Append writes one entry. Newlines inside text are flattened so an entry
// always occupies exactly one line.
func (l *Log) Append(kind Kind, text string) error {
	e := Entry{
		Time: l.now(),
		Kind: kind,
		Text: strings.Join(strings.Fields(text), " "),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("event log %q is closed", l.path)
	}
	if _, err := io.WriteString(l.file, e.Line()+"\n"); err != nil {
		return fmt.Errorf("append event log: %w", err)
	}

	for ch := range l.subs {
		select {
		case ch <- e:
		default:
			// slow subscriber; it will catch up from the file
		}
	}
	return nil
}

// ReadAll returns the raw file contents.
func (l *Log) ReadAll() (string, error) {
	b, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return "", fmt.Errorf("read event log: %w", err)
	}
	return string(b), nil
}

// Tail returns the last n parsed entries, oldest first. n <= 0 returns all.
// Lines that do not parse are skipped.
func (l *Log) Tail(n int) ([]Entry, error) {
	f, err := l.fs.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		e, ok := Parse(sc.Text())
		if !ok {
			continue
		}
		out = append(out, e)
		if n > 0 && len(out) > n {
			out = out[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan event log: %w", err)
	}
	return out, nil
}

// Subscribe returns a channel receiving entries appended from now on and a
// function that cancels the subscription.
func (l *Log) Subscribe() (<-chan Entry, func()) {
	ch := make(chan Entry, 16)

	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, ch)
			l.mu.Unlock()
			close(ch)
		})
	}
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Parse reads a stored line back into an entry.
func Parse(line string) (Entry, bool) {
	if len(line) < len(timeLayout)+1 {
		return Entry{}, false
	}
	ts, err := time.ParseInLocation(timeLayout, line[:len(timeLayout)], time.Local)
	if err != nil {
		return Entry{}, false
	}
	rest := strings.TrimPrefix(line[len(timeLayout):], " ")
	kind, text, ok := strings.Cut(rest, ":")
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Time: ts,
		Kind: Kind(kind),
		Text: strings.TrimPrefix(text, " "),
	}, true
}
