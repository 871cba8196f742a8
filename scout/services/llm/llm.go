package llm

import (
	"context"
	"net/http"
	"strings"

	httputils "scout/scout/utils/http"
	"scout/scout/utils/logging"
)

// ChatClient runs one non-streaming chat completion.
type ChatClient interface {
	Run(ctx context.Context, req ChatRequest) (string, error)
}

type ChatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  interface{} `json:"options,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

type OllamaClient struct {
	baseURL string
	client  *http.Client
}

func NewOllamaClient(baseURL string, client *http.Client) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434/api"
	}
	return &OllamaClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c *OllamaClient) Run(ctx context.Context, req ChatRequest) (string, error) {
	defer logging.LogDuration(ctx, "ollama_run")()
	req.Stream = false
	var resp ChatResponse
	if err := httputils.PostJSON(ctx, c.client, c.baseURL+"/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
