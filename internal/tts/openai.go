package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/openai/openai-go/v3"
)

// MP3Player plays an MP3 stream and closes it. *audio.Player satisfies it.
type MP3Player interface {
	PlayMP3(ctx context.Context, r io.ReadCloser) error
}

type OpenAIOptions struct {
	Model        string
	Voice        string
	Speed        float64
	Instructions string
}

// OpenAI synthesises speech with the OpenAI audio API and plays the MP3 reply.
type OpenAI struct {
	client openai.Client
	player MP3Player
	opt    OpenAIOptions
}

func NewOpenAI(client openai.Client, player MP3Player, opt OpenAIOptions) *OpenAI {
	if opt.Model == "" {
		opt.Model = string(openai.SpeechModelTTS1)
	}
	if opt.Voice == "" {
		opt.Voice = string(openai.AudioSpeechNewParamsVoiceAlloy)
	}
	return &OpenAI{client: client, player: player, opt: opt}
}

func (o *OpenAI) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.opt.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.opt.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	if o.opt.Speed > 0 {
		params.Speed = openai.Float(o.opt.Speed)
	}
	if o.opt.Instructions != "" {
		params.Instructions = openai.String(o.opt.Instructions)
	}

	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return fmt.Errorf("speech: %w", err)
	}

	return o.player.PlayMP3(ctx, resp.Body)
}
