package aicore

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ccastromar/aicore-agents/internal/logx"
)

// Deployment is one entry served by the mock deployment listing.
type Deployment struct {
	ID         string
	ScenarioID string
}

// Mock fakes the parts of SAP AI Core the resolver and chat client use:
// the XSUAA token endpoint, the lm deployment listing and the inference
// chat completions endpoint.
type Mock struct {
	ClientID     string
	ClientSecret string
	Token        string
	Deployments  []Deployment
}

func NewMock() *Mock {
	return &Mock{
		ClientID:     "mock-client",
		ClientSecret: "mock-secret",
		Token:        "mock-token",
		Deployments: []Deployment{
			{ID: "d0000000000001", ScenarioID: "foundation-models"},
			{ID: "d0000000000002", ScenarioID: "foundation-models"},
		},
	}
}

func (m *Mock) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /oauth/token", m.postToken)
	mux.HandleFunc("GET /v2/lm/deployments", m.getDeployments)
	mux.HandleFunc("POST /v2/inference/deployments/{id}/chat/completions", m.postChatCompletion)
}

func (m *Mock) postToken(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		_ = r.ParseForm()
		user, pass = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if user != m.ClientID || pass != m.ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_client"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": m.Token,
		"token_type":   "bearer",
		"expires_in":   43199,
	})
}

func (m *Mock) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+m.Token && r.Header.Get("AI-Resource-Group") != ""
}

func (m *Mock) getDeployments(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	scenario := r.URL.Query().Get("scenarioId")
	base := "http://" + r.Host

	resources := []map[string]any{}
	for _, d := range m.Deployments {
		if scenario != "" && d.ScenarioID != scenario {
			continue
		}
		resources = append(resources, map[string]any{
			"id":            d.ID,
			"scenarioId":    d.ScenarioID,
			"status":        "RUNNING",
			"deploymentUrl": base + "/v2/inference/deployments/" + d.ID,
		})
	}
	logx.Info("Mock", "listing %d deployment(s) for scenario %q", len(resources), scenario)
	writeJSON(w, http.StatusOK, map[string]any{"count": len(resources), "resources": resources})
}

func (m *Mock) postChatCompletion(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.URL.Query().Get("api-version") == "" {
		http.Error(w, "api-version required", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	reply := "Take the early tram to the neighbourhood market and eat where the stallholders eat."
	if bytes.Contains(bytes.ToLower(body), []byte("hotel concierge")) {
		reply = "Approved. That is exactly where locals go."
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   r.PathValue("id"),
		"choices": []any{map[string]any{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": reply},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     len(strings.Fields(string(body))),
			"completion_tokens": len(strings.Fields(reply)),
			"total_tokens":      len(strings.Fields(string(body))) + len(strings.Fields(reply)),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
