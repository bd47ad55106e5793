// Package cli is the command line surface of the agent core.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zenai/agentcore/internal/config"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// AppFactory builds the App a command runs against.
type AppFactory func(ctx context.Context, cfg *config.AppConfig) (*App, error)

// Options let tests replace the app and the output streams.
type Options struct {
	NewApp AppFactory
	Out    io.Writer
	Err    io.Writer
}

type globals struct {
	envFile        string
	userID         string
	conversationID string
	jsonOutput     bool
}

type runner struct {
	opts Options
	g    globals
}

// NewRootCommand builds the agentcore command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.NewApp == nil {
		opts.NewApp = NewApp
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:           "agentcore",
		Short:         "Route requests to specialized LLM agents",
		Long:          "agentcore routes each request to planning, task analysis, code review or meeting agents,\nruns them and merges their answers, keeping per-conversation memory.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&r.g.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	pf.StringVarP(&r.g.userID, "user", "u", "cli", "User id of the conversation")
	pf.StringVarP(&r.g.conversationID, "conversation", "c", "default", "Conversation id")
	pf.BoolVar(&r.g.jsonOutput, "json", false, "Print full results as JSON")

	root.AddCommand(
		r.askCmd(),
		r.workflowCmd(),
		r.historyCmd(),
		r.clearCmd(),
		r.indexCmd(),
		r.analyzeTaskCmd(),
		r.reviewCodeCmd(),
		r.summarizeMeetingCmd(),
		r.serveMCPCmd(),
		r.readyCmd(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand(Options{})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// withApp loads configuration, builds the app and runs fn against it.
func (r *runner) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	cfg, err := config.Load(r.g.envFile)
	if err != nil {
		return err
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel, Output: r.opts.Err})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := r.opts.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logx.Warn().Err(cerr).Msg("failed to close app")
		}
	}()
	return fn(ctx, app)
}

func (r *runner) printJSON(v any) error {
	enc := json.NewEncoder(r.opts.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.opts.Out, format, args...)
}
