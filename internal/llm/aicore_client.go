package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ccastromar/aicore-agents/internal/aicore"
	"github.com/ccastromar/aicore-agents/internal/logx"
	"github.com/ccastromar/aicore-agents/internal/metrics"
)

// ChatConfig is everything the chat client factory needs to talk to one
// AI Core deployment.
type ChatConfig struct {
	DeploymentName string
	DeploymentURL  string
	APIKey         string
	APIVersion     string
	DefaultHeaders map[string]string
	Timeout        time.Duration
}

// headerTransport adds the default headers and the api-version query
// parameter to every request sent to the deployment.
type headerTransport struct {
	headers    map[string]string
	apiVersion string
	base       http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		r.Header.Set(k, v)
	}
	if t.apiVersion != "" {
		q := r.URL.Query()
		if q.Get("api-version") == "" {
			q.Set("api-version", t.apiVersion)
			r.URL.RawQuery = q.Encode()
		}
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

// NewAICoreChatModel builds an OpenAI-compatible model whose base URL is the
// deployment URL, authenticated with the raw bearer token.
func NewAICoreChatModel(cfg ChatConfig) (llms.Model, error) {
	if cfg.DeploymentURL == "" || cfg.DeploymentName == "" {
		return nil, fmt.Errorf("deployment name and url are required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai core token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			headers:    cfg.DefaultHeaders,
			apiVersion: cfg.APIVersion,
		},
	}

	model, err := openai.New(
		openai.WithBaseURL(strings.TrimRight(cfg.DeploymentURL, "/")),
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.DeploymentName),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create ai core chat model: %w", err)
	}
	return model, nil
}

// ChatClient is the LLMClient the agents use.
type ChatClient struct {
	model      llms.Model
	Deployment aicore.ResolvedDeployment
}

var _ LLMClient = (*ChatClient)(nil)

func NewChatClient(model llms.Model, d aicore.ResolvedDeployment) *ChatClient {
	return &ChatClient{model: model, Deployment: d}
}

// BuildChatClient resolves the deployment, fetches a token and builds the
// client. Any failure is returned as is and is meant to stop start-up.
func BuildChatClient(ctx context.Context, r *aicore.Resolver, s aicore.Settings, timeout time.Duration) (*ChatClient, error) {
	d, err := r.ResolveEndpoint(ctx, s)
	if err != nil {
		return nil, err
	}
	tok, err := r.IssueToken(ctx, s)
	if err != nil {
		return nil, err
	}
	model, err := NewAICoreChatModel(ChatConfig{
		DeploymentName: d.DeploymentName,
		DeploymentURL:  d.DeploymentURL,
		APIKey:         tok,
		APIVersion:     s.APIVersion,
		DefaultHeaders: s.DefaultHeaders(),
		Timeout:        timeout,
	})
	if err != nil {
		return nil, err
	}
	logx.Info("LLM", "chat client ready for deployment %s", d.DeploymentName)
	return NewChatClient(model, d), nil
}

func (c *ChatClient) Chat(ctx context.Context, req Request) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	labels := func(outcome string) map[string]string {
		return map[string]string{"agent": req.Agent, "outcome": outcome}
	}

	content := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, m := range req.Messages {
		msgType := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			msgType = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(msgType, m.Content))
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(req.Temperature))
	if err != nil {
		metrics.LLMChats.Inc(labels("error"))
		return "", fmt.Errorf("ai core chat failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		metrics.LLMChats.Inc(labels("error"))
		return "", errors.New("ai core chat: empty response")
	}

	metrics.LLMChats.Inc(labels("ok"))
	metrics.LLMChatDur.Observe(map[string]string{"agent": req.Agent}, time.Since(start).Seconds())
	return resp.Choices[0].Content, nil
}

// Ping sends a one-token completion to check the deployment answers.
func (c *ChatClient) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "ping")},
		llms.WithMaxTokens(1),
	)
	if err != nil {
		return fmt.Errorf("ai core ping failed: %w", err)
	}
	return nil
}
