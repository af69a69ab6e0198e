package stt

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"

	"gpthome/pkg/audioconv"
)

type OpenAIOptions struct {
	Model    string // defaults to whisper-1
	Language string // ISO-639-1, empty for auto
	Prompt   string
}

// OpenAI recognises speech with the hosted transcription API.
type OpenAI struct {
	client openai.Client
	opt    OpenAIOptions
}

func NewOpenAI(client openai.Client, opt OpenAIOptions) *OpenAI {
	if opt.Model == "" {
		opt.Model = string(openai.AudioModelWhisper1)
	}
	return &OpenAI{client: client, opt: opt}
}

// Recognize implements Recognizer.
func (o *OpenAI) Recognize(ctx context.Context, pcm []float32) (string, error) {
	wav, err := audioconv.EncodeWAV(pcm, SampleRate)
	if err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: openai.AudioModel(o.opt.Model),
	}
	if o.opt.Language != "" && o.opt.Language != "auto" {
		params.Language = openai.String(o.opt.Language)
	}
	if o.opt.Prompt != "" {
		params.Prompt = openai.String(o.opt.Prompt)
	}

	res, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &RequestError{Backend: "openai", Err: err}
	}

	text := CleanTranscript([]string{res.Text})
	if text == "" {
		return "", ErrUnknownValue
	}
	return text, nil
}
