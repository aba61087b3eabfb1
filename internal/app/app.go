package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ccastromar/aicore-agents/internal/agent"
	"github.com/ccastromar/aicore-agents/internal/aicore"
	"github.com/ccastromar/aicore-agents/internal/config"
	"github.com/ccastromar/aicore-agents/internal/llm"
	"github.com/ccastromar/aicore-agents/internal/logx"
	"github.com/ccastromar/aicore-agents/internal/runtime"
	"github.com/ccastromar/aicore-agents/internal/ui"
)

type App struct {
	env      *config.EnvVars
	cfg      *config.Config
	ui       *ui.UIStore
	llm      llm.LLMClient
	workflow *agent.Workflow
	api      *agent.WorkflowAPI
	http     *HTTPServer
}

// NewResolver wires the AI Core token issuer and deployment directory from
// the environment.
func NewResolver(env *config.EnvVars) (*aicore.Resolver, error) {
	if err := env.ValidateServiceKey(); err != nil {
		return nil, err
	}
	issuer := aicore.NewOAuthTokenIssuer(env.AuthURL, env.ClientID, env.ClientSecret, env.HTTPTimeout)
	directory := aicore.NewDeploymentClient(env.BaseURL, issuer, env.HTTPTimeout)
	return aicore.NewResolver(directory, issuer), nil
}

// New resolves the deployment, builds the chat client and assembles the
// agents. Resolution errors are fatal for the caller.
func New(ctx context.Context, env *config.EnvVars) (*App, error) {
	cfg, err := config.LoadFromDir(env.AgentsDir)
	if err != nil {
		return nil, err
	}
	resolver, err := NewResolver(env)
	if err != nil {
		return nil, err
	}
	client, err := llm.BuildChatClient(ctx, resolver, env.Settings(), env.LLMTimeout)
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, env, cfg, client, client.Deployment)
}

// Assemble builds the app around an existing chat client.
func Assemble(ctx context.Context, env *config.EnvVars, cfg *config.Config, client llm.LLMClient, d aicore.ResolvedDeployment) (*App, error) {
	frontDesk, err := agent.NewFrontDesk(cfg, client)
	if err != nil {
		return nil, err
	}
	concierge, err := agent.NewConcierge(cfg, client)
	if err != nil {
		return nil, err
	}

	uiStore := ui.NewUIStore()
	wf := agent.NewWorkflow(frontDesk, concierge, env.WorkflowMaxRounds, uiStore)
	api := agent.NewWorkflowAPI(ctx, wf, env.APIKey)

	rt := &runtime.Runtime{
		AgentsLoaded: true,
		LLMClient:    client,
		Deployment:   d,
	}

	return &App{
		env:      env,
		cfg:      cfg,
		ui:       uiStore,
		llm:      client,
		workflow: wf,
		api:      api,
		http:     NewHTTPServer(env.Port, api, uiStore, rt),
	}, nil
}

// RunOnce executes a single workflow run.
func (a *App) RunOnce(ctx context.Context, request string) (*agent.Outcome, error) {
	if a.workflow == nil {
		return nil, fmt.Errorf("workflow not configured")
	}
	return a.workflow.Run(ctx, request)
}

// Run serves HTTP until ctx is cancelled, then waits for in-flight runs.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.http.Start(gctx)
	})
	if a.api != nil {
		g.Go(func() error {
			<-gctx.Done()
			a.api.Wait()
			return nil
		})
	}

	logx.Info("App", "aicore-agents started")
	return g.Wait()
}
