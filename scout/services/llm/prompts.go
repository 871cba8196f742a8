package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Prompt is one named template. System is optional.
type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// PromptSet maps prompt names to their parsed templates.
type PromptSet struct {
	system map[string]*template.Template
	user   map[string]*template.Template
}

const defaultPromptsYAML = `
WebSearch:
  system: You turn research questions into web search queries.
  user: |
    Write up to 5 search engine queries that would find information to answer the request below.
    Respond with one query per line and nothing else.

    Request: {{.user_input}}
Summarize Web Content:
  system: You extract facts from web pages.
  user: |
    The user wants to know: {{.user_input}}

    Below is part of the content of {{.link}}. Summarize only what is relevant to the user.
    If nothing in it is relevant, respond with exactly "None".

    {{.chunk}}
Pick-a-Link:
  system: You decide which link is worth reading next.
  user: |
    The user wants to know: {{.user_input}}

    Links found on the page:
    {{.links}}

    Respond with the single URL most likely to help, or "None" if no link is useful.
`

// DefaultPrompts returns the built-in WebSearch, Summarize Web Content and Pick-a-Link templates.
func DefaultPrompts() *PromptSet {
	ps, err := ParsePrompts([]byte(defaultPromptsYAML))
	if err != nil {
		panic(err)
	}
	return ps
}

// LoadPrompts reads templates from a YAML file. A missing file yields the
// defaults; prompts present in the file override the default of the same name.
func LoadPrompts(path string) (*PromptSet, error) {
	defaults := DefaultPrompts()
	if path == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}
	custom, err := ParsePrompts(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for name, t := range custom.user {
		defaults.user[name] = t
		defaults.system[name] = custom.system[name]
	}
	return defaults, nil
}

func ParsePrompts(data []byte) (*PromptSet, error) {
	var raw map[string]Prompt
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	ps := &PromptSet{system: map[string]*template.Template{}, user: map[string]*template.Template{}}
	for name, p := range raw {
		if p.User == "" {
			return nil, fmt.Errorf("prompt %q has no user template", name)
		}
		u, err := template.New(name).Option("missingkey=zero").Parse(p.User)
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}
		ps.user[name] = u
		if p.System != "" {
			s, err := template.New(name + ".system").Option("missingkey=zero").Parse(p.System)
			if err != nil {
				return nil, fmt.Errorf("prompt %q system: %w", name, err)
			}
			ps.system[name] = s
		}
	}
	return ps, nil
}

// Render builds the chat messages for a prompt.
func (ps *PromptSet) Render(name string, args map[string]any) ([]Message, error) {
	u, ok := ps.user[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt %q", name)
	}
	var msgs []Message
	if s := ps.system[name]; s != nil {
		var buf bytes.Buffer
		if err := s.Execute(&buf, args); err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{Role: "system", Content: buf.String()})
	}
	var buf bytes.Buffer
	if err := u.Execute(&buf, args); err != nil {
		return nil, err
	}
	return append(msgs, Message{Role: "user", Content: buf.String()}), nil
}

// TemplateAgent renders prompts locally and sends them to a chat model.
type TemplateAgent struct {
	chat    ChatClient
	model   string
	prompts *PromptSet
}

func NewTemplateAgent(chat ChatClient, model string, prompts *PromptSet) *TemplateAgent {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &TemplateAgent{chat: chat, model: model, prompts: prompts}
}

// PromptAgent ignores agentName; the model is fixed at construction.
func (a *TemplateAgent) PromptAgent(ctx context.Context, agentName, promptName string, args map[string]any) (string, error) {
	msgs, err := a.prompts.Render(promptName, args)
	if err != nil {
		return "", err
	}
	out, err := a.chat.Run(ctx, ChatRequest{Model: a.model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("prompt %q: %w", promptName, err)
	}
	return out, nil
}
