package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scout/scout/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAGiXTPromptAgent(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody agixtPromptRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"response": "1. first\n2. second"})
	}))
	defer srv.Close()

	c := NewAGiXTClient(srv.URL+"/", "secret", srv.Client())
	out, err := c.PromptAgent(context.Background(), "gpt4free", PromptWebSearch, map[string]any{
		"user_input":     "go generics",
		"disable_memory": true,
	})

	require.NoError(t, err)
	assert.Equal(t, "1. first\n2. second", out)
	assert.Equal(t, "/api/agent/gpt4free/prompt", gotPath)
	assert.Equal(t, "secret", gotAuth)
	assert.Equal(t, PromptWebSearch, gotBody.PromptName)
	assert.Equal(t, "go generics", gotBody.PromptArgs["user_input"])
	assert.Equal(t, true, gotBody.PromptArgs["disable_memory"])
}

func TestAGiXTPromptAgentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewAGiXTClient(srv.URL, "", srv.Client())
	_, err := c.PromptAgent(context.Background(), "missing", PromptPickLink, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "Pick-a-Link")
}

type recordingChat struct {
	req ChatRequest
	out string
}

func (r *recordingChat) Run(ctx context.Context, req ChatRequest) (string, error) {
	r.req = req
	return r.out, nil
}

func TestTemplateAgentRendersPrompt(t *testing.T) {
	chat := &recordingChat{out: "None"}
	a := NewTemplateAgent(chat, "llama3:8b", nil)

	out, err := a.PromptAgent(context.Background(), "ignored", PromptSummarize, map[string]any{
		"link":       "https://a.test/",
		"chunk":      "chunk body",
		"user_input": "what is a.test",
	})

	require.NoError(t, err)
	assert.Equal(t, "None", out)
	assert.Equal(t, "llama3:8b", chat.req.Model)
	require.Len(t, chat.req.Messages, 2)
	assert.Equal(t, "system", chat.req.Messages[0].Role)
	user := chat.req.Messages[1].Content
	assert.Contains(t, user, "https://a.test/")
	assert.Contains(t, user, "chunk body")
	assert.Contains(t, user, "what is a.test")
}

func TestTemplateAgentUnknownPrompt(t *testing.T) {
	a := NewTemplateAgent(&recordingChat{}, "m", nil)
	_, err := a.PromptAgent(context.Background(), "", "Nope", nil)
	assert.Error(t, err)
}

func TestLoadPromptsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("WebSearch:\n  user: \"Q: {{.user_input}}\"\n"), 0o644))

	ps, err := LoadPrompts(path)
	require.NoError(t, err)

	msgs, err := ps.Render(PromptWebSearch, map[string]any{"user_input": "x"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Q: x", msgs[0].Content)

	// untouched defaults remain
	_, err = ps.Render(PromptPickLink, map[string]any{"links": "a", "user_input": "b"})
	assert.NoError(t, err)
}

func TestLoadPromptsMissingFile(t *testing.T) {
	ps, err := LoadPrompts(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	_, err = ps.Render(PromptSummarize, map[string]any{})
	assert.NoError(t, err)
}

func TestParsePromptsRejectsEmptyUser(t *testing.T) {
	_, err := ParsePrompts([]byte("Broken:\n  system: hi\n"))
	assert.Error(t, err)
}

func TestOllamaAndOpenAIClients(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/chat":
			json.NewEncoder(w).Encode(ChatResponse{Message: Message{Role: "assistant", Content: "from ollama"}, Done: true})
		case r.URL.Path == "/v1/chat/completions":
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"from openai"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	out, err := NewOllamaClient(srv.URL+"/api", srv.Client()).Run(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "from ollama", out)

	out, err = NewOpenAIClient(srv.URL+"/v1", "key", srv.Client()).Run(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "from openai", out)

	_, err = NewOpenAIClient(srv.URL+"/v1", "", srv.Client()).Run(context.Background(), ChatRequest{Model: "m"})
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	a, err := New(config.Config{AgentBackend: "agixt", AgixtURI: "http://localhost:7437"})
	require.NoError(t, err)
	assert.IsType(t, &AGiXTClient{}, a)

	a, err = New(config.Config{AgentBackend: "ollama"})
	require.NoError(t, err)
	assert.IsType(t, &TemplateAgent{}, a)

	_, err = New(config.Config{AgentBackend: "carrier-pigeon"})
	assert.Error(t, err)
}
