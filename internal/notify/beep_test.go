package notify

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"gpthome/internal/audio"
)

func TestChime_SilentWithoutFile(t *testing.T) {
	var nilChime *Chime
	assert.NoError(t, nilChime.Play(context.Background()))
	assert.NoError(t, NewChime(audio.NewPlayer(0), "").Play(context.Background()))
}

func TestChime_MissingFile(t *testing.T) {
	c := NewChime(audio.NewPlayer(0), filepath.Join(t.TempDir(), "ding.mp3"))
	assert.ErrorContains(t, c.Play(context.Background()), "open chime")
}
