package health

import (
	"encoding/json"
	"net/http"

	"github.com/ccastromar/aicore-agents/internal/logx"
	"github.com/ccastromar/aicore-agents/internal/runtime"
)

func ReadyHandler(rt *runtime.Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rt == nil || !rt.AgentsLoaded {
			http.Error(w, "agents not loaded", http.StatusServiceUnavailable)
			return
		}
		if rt.LLMClient == nil {
			http.Error(w, "llm not configured", http.StatusServiceUnavailable)
			return
		}
		if err := rt.LLMClient.Ping(r.Context()); err != nil {
			logx.Warn("HTTP", "readiness ping failed: %v", err)
			http.Error(w, "llm unreachable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":     "ready",
			"deployment": rt.Deployment.DeploymentName,
		})
	}
}
