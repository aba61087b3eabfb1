package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ccastromar/aicore-agents/internal/agent"
	"github.com/ccastromar/aicore-agents/internal/app"
	"github.com/ccastromar/aicore-agents/internal/config"
	"github.com/ccastromar/aicore-agents/internal/guard"
	"github.com/ccastromar/aicore-agents/internal/logx"
)

// service is the part of the app the commands drive.
type service interface {
	Run(context.Context) error
	RunOnce(context.Context, string) (*agent.Outcome, error)
}

// appCtor is a constructor indirection to enable testing without resolving a real deployment.
var appCtor = func(ctx context.Context, env *config.EnvVars) (service, error) { return app.New(ctx, env) }

// fatalf indirection allows testing fatal paths without exiting the test process.
var fatalf = log.Fatalf

type rootFlags struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "aicore-agents",
		Short:         "Travel agents on SAP AI Core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load before the environment")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newResolveCmd(flags),
		newTokenCmd(flags),
		newRunCmd(flags),
		newServeCmd(flags),
	)
	return root
}

func (f *rootFlags) load() (*config.EnvVars, error) {
	env, err := config.LoadEnv(f.envFile)
	if err != nil {
		return nil, err
	}
	level := env.LogLevel
	if f.logLevel != "" {
		level = f.logLevel
	}
	logx.SetLevel(level)
	return env, nil
}

func newResolveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the configured deployment and print its name and URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.load()
			if err != nil {
				return err
			}
			resolver, err := app.NewResolver(env)
			if err != nil {
				return err
			}
			d, err := resolver.ResolveEndpoint(cmd.Context(), env.Settings())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printField(out, "deployment", d.DeploymentName)
			printField(out, "url", d.DeploymentURL)
			return nil
		},
	}
}

func newTokenCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Issue an access token and print a redacted summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.load()
			if err != nil {
				return err
			}
			resolver, err := app.NewResolver(env)
			if err != nil {
				return err
			}
			tok, err := resolver.IssueToken(cmd.Context(), env.Settings())
			if err != nil {
				return err
			}
			printField(cmd.OutOrStdout(), "token", redact(tok))
			return nil
		},
	}
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <request...>",
		Short: "Run one front desk / concierge review for a traveler request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := guard.CleanRequest(strings.Join(args, " "))
			if err != nil {
				return err
			}
			env, err := flags.load()
			if err != nil {
				return err
			}
			a, err := appCtor(cmd.Context(), env)
			if err != nil {
				return err
			}
			outcome, err := a.RunOnce(cmd.Context(), request)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow API, UI timeline, health and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.load()
			if err != nil {
				return err
			}
			if port != "" {
				env.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, env)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "HTTP port to listen on (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, env *config.EnvVars) error {
	a, err := appCtor(ctx, env)
	if err != nil {
		return fmt.Errorf("error initializing app: %w", err)
	}
	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}

func printField(w io.Writer, name, value string) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprintf("%-10s", name+":"), value)
}

func printOutcome(w io.Writer, o *agent.Outcome) {
	for _, t := range o.Transcript {
		fmt.Fprintf(w, "%s %s\n", color.CyanString("[%d] %s:", t.Round, t.Agent), t.Content)
	}
	if o.Approved {
		fmt.Fprintln(w, color.GreenString("approved after %d round(s)", o.Rounds))
		return
	}
	fmt.Fprintln(w, color.YellowString("not approved after %d round(s)", o.Rounds))
}

// redact keeps the first characters of a token so two tokens can be told apart.
func redact(tok string) string {
	if len(tok) <= 8 {
		return fmt.Sprintf("**** (%d chars)", len(tok))
	}
	return fmt.Sprintf("%s**** (%d chars)", tok[:4], len(tok))
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fatalf("%v", err)
	}
}
