package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	httputils "scout/scout/utils/http"
	"scout/scout/utils/logging"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, vLLM ...).
type OpenAIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAIClient expects the API root, e.g. https://api.groq.com/openai/v1.
func NewOpenAIClient(baseURL, apiKey string, client *http.Client) *OpenAIClient {
	return &OpenAIClient{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Run(ctx context.Context, req ChatRequest) (string, error) {
	defer logging.LogDuration(ctx, "openai_run")()
	req.Stream = false

	var auth string
	if c.apiKey != "" {
		auth = "Bearer " + c.apiKey
	}
	var resp openAIResponse
	if err := httputils.PostJSONWithAuth(ctx, c.client, c.baseURL+"/chat/completions", auth, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("no choices returned")
}
