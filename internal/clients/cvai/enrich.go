package cvai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/sashabaranov/go-openai"
)

const enrichPrompt = `You are a CV parser. Decide whether the text below is a CV or résumé.
Answer with a single JSON object and nothing else:
{
  "is_cv": true or false,
  "error": "why it is not a CV, when is_cv is false",
  "data": {
    "full_name": string, "email": string, "phone": string, "location": string, "summary": string,
    "skills": [string],
    "experience": [{"title": string, "company": string, "start_date": string, "end_date": string, "description": string}],
    "education": [{"degree": string, "school": string, "start_date": string, "end_date": string}]
  }
}
Do not invent information. Use null or an empty list for anything missing.

CV TEXT:
`

// maxPromptChars caps the text sent to the model.
const maxPromptChars = 30000

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Enricher turns raw CV text into a structured document.
type Enricher struct {
	client *openai.Client
	model  string
}

func NewEnricher(cfg ClientConfig) (*Enricher, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("cvai: enricher needs an api key")
	}
	model := cfg.Model
	if model == "" {
		model = OpenAIModel
	}
	return &Enricher{client: newClient(cfg), model: model}, nil
}

type llmExperience struct {
	Title       string `json:"title"`
	Role        string `json:"role"`
	Company     string `json:"company"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

type llmResponse struct {
	IsCV  bool   `json:"is_cv"`
	Error string `json:"error"`
	Data  struct {
		FullName    string             `json:"full_name"`
		Email       string             `json:"email"`
		Phone       string             `json:"phone"`
		Location    string             `json:"location"`
		Summary     string             `json:"summary"`
		Skills      []string           `json:"skills"`
		Experience  []llmExperience    `json:"experience"`
		Experiences []llmExperience    `json:"experiences"`
		Education   []domain.Education `json:"education"`
	} `json:"data"`
}

// Enrich asks the model to structure text. A reply that is not valid JSON
// is reported as "not a CV" rather than an error.
func (e *Enricher) Enrich(ctx context.Context, text string) (domain.CVParseResult, error) {
	text = truncateUTF8(text, maxPromptChars)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: enrichPrompt + text},
		},
	})
	if err != nil {
		return domain.CVParseResult{}, fmt.Errorf("cvai: enrich completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.CVParseResult{}, errors.New("cvai: enrich completion returned no choices")
	}

	return parseResponse(resp.Choices[0].Message.Content), nil
}

func parseResponse(content string) domain.CVParseResult {
	var out llmResponse
	if err := json.Unmarshal([]byte(stripFences(content)), &out); err != nil {
		return domain.CVParseResult{IsCV: false, Reason: "Invalid JSON returned by LLM"}
	}
	if !out.IsCV {
		reason := strings.TrimSpace(out.Error)
		if reason == "" {
			reason = "Document is not a CV"
		}
		return domain.CVParseResult{IsCV: false, Reason: reason}
	}

	d := out.Data
	doc := domain.CVDocument{
		FullName:  d.FullName,
		Email:     d.Email,
		Phone:     d.Phone,
		Location:  d.Location,
		Summary:   d.Summary,
		Skills:    d.Skills,
		Education: d.Education,
	}
	for _, x := range append(d.Experience, d.Experiences...) {
		title := x.Title
		if title == "" {
			title = x.Role
		}
		doc.Experiences = append(doc.Experiences, domain.Experience{
			Title:       title,
			Company:     x.Company,
			StartDate:   x.StartDate,
			EndDate:     x.EndDate,
			Description: x.Description,
		})
	}
	return domain.CVParseResult{IsCV: true, Data: doc.Normalize()}
}
