package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ccastromar/aicore-agents/internal/config"
	"github.com/ccastromar/aicore-agents/internal/llm"
	"github.com/ccastromar/aicore-agents/internal/logx"
)

// Agent is one persona backed by a chat model.
type Agent struct {
	Name         string
	Role         string
	Instructions string
	Temperature  float64

	client llm.LLMClient
}

func New(spec config.AgentSpec, client llm.LLMClient) *Agent {
	return &Agent{
		Name:         spec.Name,
		Role:         spec.Role,
		Instructions: spec.Instructions,
		Temperature:  spec.Temperature,
		client:       client,
	}
}

// NewFrontDesk and NewConcierge look the personas up in cfg.
func NewFrontDesk(cfg *config.Config, client llm.LLMClient) (*Agent, error) {
	return fromConfig(cfg, config.FrontDeskName, client)
}

func NewConcierge(cfg *config.Config, client llm.LLMClient) (*Agent, error) {
	return fromConfig(cfg, config.ConciergeName, client)
}

func fromConfig(cfg *config.Config, name string, client llm.LLMClient) (*Agent, error) {
	spec, err := cfg.Agent(name)
	if err != nil {
		return nil, err
	}
	return New(spec, client), nil
}

// Respond answers the conversation with the agent's instructions as system prompt.
func (a *Agent) Respond(ctx context.Context, history []llm.Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("%s: empty conversation", a.Name)
	}
	out, err := a.client.Chat(ctx, llm.Request{
		Agent:       a.Name,
		System:      a.Instructions,
		Messages:    history,
		Temperature: a.Temperature,
	})
	if err != nil {
		logx.Error(a.Name, "chat failed: %v", err)
		return "", fmt.Errorf("%s: %w", a.Name, err)
	}
	return strings.TrimSpace(out), nil
}
