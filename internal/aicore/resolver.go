package aicore

import (
	"context"
	"fmt"
	"strings"

	"github.com/ccastromar/aicore-agents/internal/logx"
	"github.com/ccastromar/aicore-agents/internal/metrics"
)

// Directory lists the deployments of a resource group for a scenario.
type Directory interface {
	ListDeployments(ctx context.Context, resourceGroup, scenarioID string) ([]Candidate, error)
}

// TokenIssuer mints a bearer credential for a resource group. The returned
// value may carry a "Bearer " prefix.
type TokenIssuer interface {
	Token(ctx context.Context, resourceGroup string) (string, error)
}

// TokenIssuerFunc adapts a function to TokenIssuer.
type TokenIssuerFunc func(ctx context.Context, resourceGroup string) (string, error)

func (f TokenIssuerFunc) Token(ctx context.Context, resourceGroup string) (string, error) {
	return f(ctx, resourceGroup)
}

const bearerPrefix = "Bearer "

// Resolver turns Settings into a concrete deployment and a token. It keeps
// no state between calls: every call lists and authenticates again.
type Resolver struct {
	directory Directory
	issuer    TokenIssuer
}

func NewResolver(directory Directory, issuer TokenIssuer) *Resolver {
	return &Resolver{directory: directory, issuer: issuer}
}

// ResolveEndpoint selects a deployment and determines its name.
//
// With DeploymentName set, the first candidate whose Key matches exactly is
// used; when none matches, the first listed candidate is used instead.
func (r *Resolver) ResolveEndpoint(ctx context.Context, s Settings) (ResolvedDeployment, error) {
	if s.ResourceGroup == "" || s.ScenarioID == "" {
		metrics.Resolutions.Inc(map[string]string{"outcome": "invalid"})
		return ResolvedDeployment{}, fmt.Errorf("%w: resource group and scenario id must be set", ErrInvalidSettings)
	}

	candidates, err := r.directory.ListDeployments(ctx, s.ResourceGroup, s.ScenarioID)
	if err != nil {
		metrics.Resolutions.Inc(map[string]string{"outcome": "error"})
		return ResolvedDeployment{}, fmt.Errorf("list deployments: %w", err)
	}
	logx.Debug("Resolver", "%d deployment(s) listed for resource group %q, scenario %q", len(candidates), s.ResourceGroup, s.ScenarioID)

	selected, ok := selectCandidate(candidates, s.DeploymentName)
	if !ok {
		metrics.Resolutions.Inc(map[string]string{"outcome": "not_found"})
		return ResolvedDeployment{}, fmt.Errorf("%w: resource group %q, scenario id %q; verify the resource group and scenario id",
			ErrNoDeploymentFound, s.ResourceGroup, s.ScenarioID)
	}
	outcome := "ok"
	if s.DeploymentName != "" && selected.Key() != s.DeploymentName {
		outcome = "fallback"
		logx.Warn("Resolver", "deployment %q not listed, falling back to %q", s.DeploymentName, selected.Key())
	}

	if selected.DeploymentURL == "" {
		metrics.Resolutions.Inc(map[string]string{"outcome": "missing_url"})
		return ResolvedDeployment{}, fmt.Errorf("%w (deployment %q)", ErrMissingDeploymentURL, selected.Key())
	}

	name := s.DeploymentName
	if name == "" {
		inferred, ok := InferDeploymentName(selected.DeploymentURL)
		if !ok {
			metrics.Resolutions.Inc(map[string]string{"outcome": "name_required"})
			return ResolvedDeployment{}, fmt.Errorf("%w: set AICORE_DEPLOYMENT_NAME or ensure the deployment url contains '/deployments/<name>' (got %q)",
				ErrDeploymentNameRequired, selected.DeploymentURL)
		}
		name = inferred
	}

	metrics.Resolutions.Inc(map[string]string{"outcome": outcome})
	logx.Info("Resolver", "using deployment %s at %s", name, selected.DeploymentURL)
	return ResolvedDeployment{DeploymentName: name, DeploymentURL: selected.DeploymentURL}, nil
}

func selectCandidate(candidates []Candidate, name string) (Candidate, bool) {
	if name != "" {
		for _, c := range candidates {
			if c.Key() == name {
				return c, true
			}
		}
	}
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return candidates[0], true
}

// InferDeploymentName returns the path segment following "deployments".
func InferDeploymentName(url string) (string, bool) {
	var parts []string
	for _, p := range strings.Split(url, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	for i, p := range parts {
		if p == "deployments" {
			if i+1 < len(parts) {
				return parts[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// IssueToken returns the raw token for the resource group. Issuer errors are
// returned unchanged.
func (r *Resolver) IssueToken(ctx context.Context, s Settings) (string, error) {
	tok, err := r.issuer.Token(ctx, s.ResourceGroup)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(tok, bearerPrefix), nil
}
