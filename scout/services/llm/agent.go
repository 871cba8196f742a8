// Package llm holds the clients for the remote agent that expands queries,
// summarizes page chunks and picks links to follow.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scout/scout/config"
	httputils "scout/scout/utils/http"
	"scout/scout/utils/logging"

	"go.uber.org/zap"
)

// Prompt templates consumed by the crawler.
const (
	PromptWebSearch = "WebSearch"
	PromptSummarize = "Summarize Web Content"
	PromptPickLink  = "Pick-a-Link"
)

// Agent runs a named prompt template with arguments and returns the raw text response.
type Agent interface {
	PromptAgent(ctx context.Context, agentName, promptName string, args map[string]any) (string, error)
}

// AGiXTClient calls a remote AGiXT server, which owns the prompt templates.
type AGiXTClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewAGiXTClient(baseURL, apiKey string, client *http.Client) *AGiXTClient {
	return &AGiXTClient{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

type agixtPromptRequest struct {
	PromptName string         `json:"prompt_name"`
	PromptArgs map[string]any `json:"prompt_args"`
}

type agixtPromptResponse struct {
	Response string `json:"response"`
}

func (c *AGiXTClient) PromptAgent(ctx context.Context, agentName, promptName string, args map[string]any) (string, error) {
	defer logging.LogDuration(ctx, "agixt_prompt")()

	endpoint := fmt.Sprintf("%s/api/agent/%s/prompt", c.baseURL, url.PathEscape(agentName))
	var resp agixtPromptResponse
	err := httputils.PostJSONWithAuth(ctx, c.client, endpoint, c.apiKey,
		agixtPromptRequest{PromptName: promptName, PromptArgs: args}, &resp)
	if err != nil {
		return "", fmt.Errorf("prompt %q on agent %q: %w", promptName, agentName, err)
	}
	return resp.Response, nil
}

// New builds the agent selected by cfg.AgentBackend.
func New(cfg config.Config) (Agent, error) {
	client := &http.Client{Timeout: 5 * time.Minute}

	switch cfg.AgentBackend {
	case "", "agixt":
		return NewAGiXTClient(cfg.AgixtURI, cfg.AgixtAPIKey, client), nil
	case "ollama", "openai":
		prompts, err := LoadPrompts(cfg.PromptsFile)
		if err != nil {
			return nil, err
		}
		var chat ChatClient
		if cfg.AgentBackend == "ollama" {
			chat = NewOllamaClient(cfg.OllamaURL, client)
		} else {
			chat = NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, client)
		}
		logging.AppLogger.Info("using template agent",
			zap.String("backend", cfg.AgentBackend), zap.String("model", cfg.LLMModel))
		return NewTemplateAgent(chat, cfg.LLMModel, prompts), nil
	default:
		return nil, fmt.Errorf("unknown agent backend %q", cfg.AgentBackend)
	}
}
