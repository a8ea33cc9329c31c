package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"hivelog/internal/config"
	"hivelog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, content string, captured *ChatRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		resp := ChatResponse{
			Choices: []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			}{
				{
					Message: struct {
						Content string `json:"content"`
					}{Content: content},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClientGenerate(t *testing.T) {
	var req ChatRequest
	server := chatServer(t, `{"summary":"ok"}`, &req)
	defer server.Close()

	os.Setenv("LLM_BASE_URL", server.URL)
	os.Setenv("LLM_TOKEN", "test-token")
	os.Setenv("LLM_MODEL", "test-model")
	defer os.Unsetenv("LLM_BASE_URL")
	defer os.Unsetenv("LLM_TOKEN")
	defer os.Unsetenv("LLM_MODEL")

	s, err := New(context.Background(), config.Load().LLM)
	require.NoError(t, err)

	out, err := s.Generate(context.Background(), DiscussionContext{
		Title:    "Tabs or spaces",
		Content:  "Settle it.",
		Category: "discussion",
		Tags:     []string{"style"},
		Comments: []CommentExcerpt{
			{Index: 1, Author: "ana", Content: "Tabs, for accessibility.", VoteScore: 12, HighQuality: true},
		},
		TotalComments: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, out)

	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "Tabs or spaces")
	assert.Contains(t, req.Messages[1].Content, "[1] @ana (score: 12, high quality)")
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
}

func TestClientUpdateIncludesCurrentContent(t *testing.T) {
	var req ChatRequest
	server := chatServer(t, `{}`, &req)
	defer server.Close()

	c := NewClient(server.URL+"/", "test-token", "m")
	_, err := c.Update(context.Background(), UpdateContext{
		Title:   "Tabs or spaces",
		Version: 2,
		Current: models.WikiContent{Summary: "Mostly tabs."},
		NewComments: []CommentExcerpt{
			{Index: 42, Author: "bo", Content: "Spaces render the same everywhere.", VoteScore: 7},
		},
	})
	require.NoError(t, err)

	prompt := req.Messages[1].Content
	assert.Contains(t, prompt, "version 2")
	assert.Contains(t, prompt, "Mostly tabs.")
	assert.Contains(t, prompt, "[42] @bo")
	assert.Contains(t, prompt, `"changes"`)
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", "m")
	_, err := c.Generate(context.Background(), DiscussionContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClientNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", "m").Generate(context.Background(), DiscussionContext{})
	assert.Error(t, err)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLM{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
