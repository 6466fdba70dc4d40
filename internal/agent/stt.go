package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"
)

type STTClient interface {
	Transcribe(ctx context.Context, audioData []byte, fileName string) (string, error)
}

// AudioTranscriber is the slice of the OpenAI client used for speech-to-text.
type AudioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

type whisperClient struct {
	api      AudioTranscriber
	language string
}

// NewWhisperClient transcribes Spanish audio with whisper-1.
func NewWhisperClient(api AudioTranscriber) STTClient {
	return &whisperClient{api: api, language: "es"}
}

func (c *whisperClient) Transcribe(ctx context.Context, audioData []byte, fileName string) (string, error) {
	if len(audioData) == 0 {
		return "", errors.New("empty audio")
	}
	// The API infers the container from the file extension.
	if filepath.Ext(fileName) == "" {
		fileName = "audio.wav"
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: fileName,
		Reader:   bytes.NewReader(audioData),
		Language: c.language,
	})
	if err != nil {
		return "", fmt.Errorf("STT API error: %w", err)
	}
	return resp.Text, nil
}
