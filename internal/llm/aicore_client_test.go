package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/ccastromar/aicore-agents/internal/aicore"
)

type fakeModel struct {
	got  []llms.MessageContent
	resp *llms.ContentResponse
	err  error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []any{
			map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	}
}

func TestHeaderTransport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rg1", r.Header.Get("AI-Resource-Group"))
		assert.Equal(t, "2023-05-15", r.URL.Query().Get("api-version"))
		assert.Equal(t, "1", r.URL.Query().Get("keep"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := &http.Client{Transport: &headerTransport{
		headers:    map[string]string{"AI-Resource-Group": "rg1"},
		apiVersion: "2023-05-15",
	}}
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/x?keep=1", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("AI-Resource-Group"), "caller request is not mutated")
}

func TestHeaderTransport_KeepsExplicitAPIVersion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
	}))
	defer ts.Close()

	c := &http.Client{Transport: &headerTransport{apiVersion: "2023-05-15"}}
	resp, err := c.Get(ts.URL + "/x?api-version=2024-02-01")
	require.NoError(t, err)
	resp.Body.Close()
}

func TestNewAICoreChatModel_Validation(t *testing.T) {
	_, err := NewAICoreChatModel(ChatConfig{DeploymentURL: "https://x/deployments/a", APIKey: "tok"})
	require.Error(t, err)
	_, err = NewAICoreChatModel(ChatConfig{DeploymentName: "a", APIKey: "tok"})
	require.Error(t, err)
	_, err = NewAICoreChatModel(ChatConfig{DeploymentName: "a", DeploymentURL: "https://x/deployments/a"})
	require.Error(t, err)
}

func TestAICoreChat_EndToEnd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/inference/deployments/d1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "rg1", r.Header.Get("AI-Resource-Group"))
		assert.Equal(t, "2023-05-15", r.URL.Query().Get("api-version"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content any    `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "d1", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "user", body.Messages[1].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("Visit the night market."))
	}))
	defer ts.Close()

	d := aicore.ResolvedDeployment{DeploymentName: "d1", DeploymentURL: ts.URL + "/v2/inference/deployments/d1/"}
	model, err := NewAICoreChatModel(ChatConfig{
		DeploymentName: d.DeploymentName,
		DeploymentURL:  d.DeploymentURL,
		APIKey:         "tok",
		APIVersion:     "2023-05-15",
		DefaultHeaders: map[string]string{"AI-Resource-Group": "rg1"},
		Timeout:        2 * time.Second,
	})
	require.NoError(t, err)

	out, err := NewChatClient(model, d).Chat(context.Background(), Request{
		Agent:    "FrontDesk",
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "Tokyo?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Visit the night market.", out)
}

func TestAICoreChat_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer ts.Close()

	model, err := NewAICoreChatModel(ChatConfig{
		DeploymentName: "d1",
		DeploymentURL:  ts.URL + "/deployments/d1",
		APIKey:         "tok",
		Timeout:        time.Second,
	})
	require.NoError(t, err)

	_, err = NewChatClient(model, aicore.ResolvedDeployment{}).Chat(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
}

func TestChatClient_MapsRoles(t *testing.T) {
	fm := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	c := NewChatClient(fm, aicore.ResolvedDeployment{})

	out, err := c.Chat(context.Background(), Request{
		System: "sys",
		Messages: []Message{
			{Role: RoleUser, Content: "q1"},
			{Role: RoleAssistant, Content: "a1"},
			{Role: RoleUser, Content: "q2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	require.Len(t, fm.got, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, fm.got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fm.got[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, fm.got[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fm.got[3].Role)
}

func TestChatClient_EmptyAndError(t *testing.T) {
	c := NewChatClient(&fakeModel{resp: &llms.ContentResponse{}}, aicore.ResolvedDeployment{})
	_, err := c.Chat(context.Background(), Request{})
	require.ErrorContains(t, err, "empty response")

	boom := errors.New("boom")
	c = NewChatClient(&fakeModel{err: boom}, aicore.ResolvedDeployment{})
	_, err = c.Chat(context.Background(), Request{})
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, c.Ping(context.Background()), boom)
}

func TestBuildChatClient(t *testing.T) {
	issuer := aicore.TokenIssuerFunc(func(ctx context.Context, rg string) (string, error) { return "Bearer tok", nil })
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"resources":[{"id":"d1","deploymentUrl":"https://api/v2/inference/deployments/d1"}]}`))
	}))
	defer ts.Close()

	r := aicore.NewResolver(aicore.NewDeploymentClient(ts.URL, issuer, time.Second), issuer)
	c, err := BuildChatClient(context.Background(), r, aicore.Settings{
		ResourceGroup: "rg1",
		ScenarioID:    "foundation-models",
		APIVersion:    "2023-05-15",
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "d1", c.Deployment.DeploymentName)
}

func TestBuildChatClient_TokenFailure(t *testing.T) {
	boom := errors.New("no token")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"resources":[{"id":"d1","deploymentUrl":"https://api/deployments/d1"}]}`))
	}))
	defer ts.Close()

	ok := aicore.TokenIssuerFunc(func(ctx context.Context, rg string) (string, error) { return "tok", nil })
	failing := aicore.TokenIssuerFunc(func(ctx context.Context, rg string) (string, error) { return "", boom })
	r := aicore.NewResolver(aicore.NewDeploymentClient(ts.URL, ok, time.Second), failing)

	_, err := BuildChatClient(context.Background(), r, aicore.Settings{ResourceGroup: "rg1", ScenarioID: "s"}, time.Second)
	assert.Same(t, boom, err)
}
