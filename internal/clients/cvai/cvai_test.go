package cvai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

// newChatServer answers every chat completion with content.
func newChatServer(t *testing.T, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if seen != nil {
			require.NoError(t, json.Unmarshal(body, seen))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseResponse(t *testing.T) {
	t.Run("maps experience and role", func(t *testing.T) {
		res := parseResponse("```json\n" + `{
			"is_cv": true,
			"data": {
				"full_name": "Jane Doe",
				"email": null,
				"skills": ["Go", "SQL"],
				"experience": [{"company": "Tech Corp", "role": "Backend Engineer", "start_date": "2021-06"}],
				"education": [{"degree": "BSc", "school": "MIT"}]
			}
		}` + "\n```")
		require.True(t, res.IsCV)
		require.Equal(t, "Jane Doe", res.Data.FullName)
		require.Empty(t, res.Data.Email)
		require.Equal(t, []string{"Go", "SQL"}, res.Data.Skills)
		require.Len(t, res.Data.Experiences, 1)
		require.Equal(t, "Backend Engineer", res.Data.Experiences[0].Title)
		require.Equal(t, "MIT", res.Data.Education[0].School)
	})

	t.Run("not a cv keeps the reason", func(t *testing.T) {
		res := parseResponse(`{"is_cv": false, "error": "This is an invoice"}`)
		require.False(t, res.IsCV)
		require.Equal(t, "This is an invoice", res.Reason)

		res = parseResponse(`{"is_cv": false}`)
		require.Equal(t, "Document is not a CV", res.Reason)
	})

	t.Run("invalid json is not a cv", func(t *testing.T) {
		res := parseResponse("Sure! Here is the CV: ...")
		require.False(t, res.IsCV)
		require.Equal(t, "Invalid JSON returned by LLM", res.Reason)
	})

	t.Run("arrays are never nil", func(t *testing.T) {
		res := parseResponse(`{"is_cv": true, "data": {"full_name": "X"}}`)
		require.NotNil(t, res.Data.Skills)
		require.NotNil(t, res.Data.Experiences)
		require.NotNil(t, res.Data.Education)
	})
}

func TestEnricher(t *testing.T) {
	var req map[string]any
	srv := newChatServer(t, `{"is_cv": true, "data": {"full_name": "Alice Martin"}}`, &req)

	e, err := NewEnricher(ClientConfig{APIKey: "test-key", BaseURL: srv.URL, Model: DeepSeekModel})
	require.NoError(t, err)

	res, err := e.Enrich(context.Background(), "Alice Martin\nGo developer")
	require.NoError(t, err)
	require.True(t, res.IsCV)
	require.Equal(t, "Alice Martin", res.Data.FullName)

	require.Equal(t, DeepSeekModel, req["model"])
	format, _ := req["response_format"].(map[string]any)
	require.Equal(t, "json_object", format["type"])

	_, err = NewEnricher(ClientConfig{})
	require.Error(t, err)
}

func TestExtractor(t *testing.T) {
	t.Run("image goes through vision model", func(t *testing.T) {
		var req map[string]any
		srv := newChatServer(t, "Alice Martin\nGo developer", &req)

		e := NewExtractor(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
		text, err := e.ImageText(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
		require.NoError(t, err)
		require.Equal(t, "Alice Martin\nGo developer", text)

		raw, err := json.Marshal(req["messages"])
		require.NoError(t, err)
		require.True(t, strings.Contains(string(raw), "data:image/png;base64,"))
	})

	t.Run("no key means no vision", func(t *testing.T) {
		e := NewExtractor(ClientConfig{})
		_, err := e.ImageText(context.Background(), []byte("img"), "image/png")
		require.ErrorIs(t, err, ErrVisionUnavailable)
	})

	t.Run("garbage pdf fails without panicking", func(t *testing.T) {
		e := NewExtractor(ClientConfig{})
		_, err := e.PDFText([]byte("definitely not a pdf"))
		require.Error(t, err)
	})
}

func TestStripFences(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences(`  {"a":1} `))
}

func TestTruncateUTF8(t *testing.T) {
	require.Equal(t, "short", truncateUTF8("short", 10))
	require.Equal(t, "h", truncateUTF8("héllo", 2))
	require.Equal(t, "hé", truncateUTF8("héllo", 3))
	require.Equal(t, "", truncateUTF8("日本", 2))

	long := "a" + strings.Repeat("é", maxPromptChars)
	cut := truncateUTF8(long, maxPromptChars)
	require.True(t, utf8.ValidString(cut))
	require.Len(t, cut, maxPromptChars-1)
}
