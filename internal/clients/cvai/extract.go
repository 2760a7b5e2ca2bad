package cvai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sashabaranov/go-openai"
)

var ErrVisionUnavailable = errors.New("cvai: no vision model configured")

const ocrPrompt = "Transcribe all text in this image exactly as written. " +
	"Return plain text only, preserving line breaks. Do not summarise or add anything."

// Extractor reads the text layer of PDFs locally and transcribes images
// with a vision-capable chat model.
type Extractor struct {
	client *openai.Client
	model  string
}

// NewExtractor returns an extractor. With an empty API key only PDFs are
// supported.
func NewExtractor(cfg ClientConfig) *Extractor {
	e := &Extractor{model: cfg.Model}
	if e.model == "" {
		e.model = OpenAIModel
	}
	if cfg.APIKey != "" {
		e.client = newClient(cfg)
	}
	return e
}

// PDFText concatenates the plain text of every page.
func (e *Extractor) PDFText(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cvai: unreadable pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("cvai: open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("cvai: read pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// ImageText transcribes an image through the vision model.
func (e *Extractor) ImageText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if e.client == nil {
		return "", ErrVisionUnavailable
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: ocrPrompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailHigh,
					},
				},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("cvai: vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("cvai: vision completion returned no choices")
	}
	return strings.TrimSpace(stripFences(resp.Choices[0].Message.Content)), nil
}
