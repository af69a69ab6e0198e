package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "log/slog"

	"gpthome/pkg/audioconv"
)

// FileSource replays recorded utterances from a directory, one file per
// Listen call in name order. It stands in for the microphone on hosts without
// one. Once the files run out it either starts over (Loop) or blocks until
// the context ends, like a microphone nobody talks into.
type FileSource struct {
	Loop bool

	mu    sync.Mutex
	files []string
	next  int
}

func NewFileSource(dir string, loop bool) (*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !audioconv.Supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no audio files in %s", dir)
	}
	sort.Strings(files)

	return &FileSource{Loop: loop, files: files}, nil
}

// Listen implements stt.Source.
func (f *FileSource) Listen(ctx context.Context) ([]float32, error) {
	f.mu.Lock()
	if f.next >= len(f.files) && f.Loop {
		f.next = 0
	}
	if f.next >= len(f.files) {
		f.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	path := f.files[f.next]
	f.next++
	f.mu.Unlock()

	log.Debug("Replaying utterance", "file", path)
	return audioconv.DecodeFile(path)
}
