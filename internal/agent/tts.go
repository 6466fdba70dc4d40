package agent

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

const ttsModel = openai.SpeechModel("gpt-4o-mini-tts")

type TTSClient interface {
	Synthesize(ctx context.Context, text string, voice string) ([]byte, error)
}

// SpeechCreator is the slice of the OpenAI client used for text-to-speech.
type SpeechCreator interface {
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

type speechClient struct {
	api          SpeechCreator
	defaultVoice string
}

func NewSpeechClient(api SpeechCreator, defaultVoice string) TTSClient {
	if defaultVoice == "" {
		defaultVoice = string(openai.VoiceNova)
	}
	return &speechClient{api: api, defaultVoice: defaultVoice}
}

// Synthesize returns MP3 audio for text.
func (c *speechClient) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("empty text")
	}
	if voice == "" {
		voice = c.defaultVoice
	}

	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          ttsModel,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("TTS API error: %w", err)
	}
	defer resp.Close()

	return io.ReadAll(resp)
}
