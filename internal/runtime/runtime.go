package runtime

import (
	"github.com/ccastromar/aicore-agents/internal/aicore"
	"github.com/ccastromar/aicore-agents/internal/llm"
)

// Runtime is what readiness checks look at.
type Runtime struct {
	AgentsLoaded bool
	LLMClient    llm.LLMClient
	Deployment   aicore.ResolvedDeployment
}
