// Package notify plays the short audio cue that tells the user the assistant
// is listening.
package notify

import (
	"context"
	"fmt"
	"os"

	"gpthome/internal/audio"
)

type Chime struct {
	player *audio.Player
	path   string
}

// NewChime returns a chime playing the MP3 at path. An empty path yields a
// silent chime.
func NewChime(player *audio.Player, path string) *Chime {
	return &Chime{player: player, path: path}
}

func (c *Chime) Play(ctx context.Context) error {
	if c == nil || c.path == "" {
		return nil
	}

	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}
	// PlayMP3 owns f from here
	return c.player.PlayMP3(ctx, f)
}
