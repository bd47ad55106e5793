package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/engine"
)

func (r *runner) askCmd() *cobra.Command {
	var (
		docs   bool
		index  bool
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "ask [request]",
		Short: "Send a request to the agents and print the combined answer",
		Example: `  agentcore ask "Create a task for the login page redesign"
  agentcore ask -c sprint-12 --docs "What did we decide about caching?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *App) error {
				req := engine.Request{
					UserID:            r.g.userID,
					ConversationID:    r.g.conversationID,
					Query:             strings.Join(args, " "),
					IncludeDocuments:  docs,
					IndexForRetrieval: index,
				}
				streamed := stream && !r.g.jsonOutput
				if streamed {
					req.OnChunk = func(s string) { r.printf("%s", s) }
				}
				resp, err := app.Engine.Process(ctx, req)
				if err != nil {
					return err
				}
				if r.g.jsonOutput {
					return r.printJSON(resp)
				}
				if streamed {
					r.printf("\n")
				} else {
					r.printf("%s\n", resp.Response)
				}
				r.printf("\n[agents: %s, %s]\n", joinAgents(resp.Routing.Agents), resp.Routing.Workflow)
				if len(resp.Skipped) > 0 {
					r.printf("[skipped unknown agents: %s]\n", strings.Join(resp.Skipped, ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&docs, "docs", false, "Search indexed documents for context")
	cmd.Flags().BoolVar(&index, "index", false, "Index this exchange for later retrieval")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream the answer as it is generated")
	return cmd
}

func (r *runner) workflowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workflow [request]",
		Short: "Break a multi-part request into steps and run them in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *App) error {
				out, err := app.Engine.ProcessComplexWorkflow(ctx, engine.Request{
					UserID:         r.g.userID,
					ConversationID: r.g.conversationID,
					Query:          strings.Join(args, " "),
				})
				if err != nil {
					return err
				}
				if r.g.jsonOutput {
					return r.printJSON(out)
				}
				for _, step := range out.Results {
					r.printf("## Step %d: %s\n%s\n\n", step.Step, step.Action, step.Result.Synthesis)
				}
				r.printf("## Summary\n%s\n", out.Summary)
				return nil
			})
		},
	}
}

func (r *runner) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *App) error {
				summary, msgs, err := app.Engine.History(ctx, r.g.userID, r.g.conversationID)
				if err != nil {
					return err
				}
				if r.g.jsonOutput {
					return r.printJSON(map[string]any{"summary": summary, "messages": msgs})
				}
				if len(msgs) == 0 {
					r.printf("No messages in %s.\n", summary.Key)
					return nil
				}
				for _, m := range msgs {
					r.printf("%s [%s]: %s\n", m.Timestamp.Format("2006-01-02 15:04"), m.Role, m.Content)
				}
				r.printf("\n%d messages, ~%d tokens\n", summary.MessageCount, summary.TokenEstimate)
				return nil
			})
		},
	}
}

func (r *runner) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *App) error {
				if err := app.Engine.ClearContext(ctx, r.g.userID, r.g.conversationID); err != nil {
					return err
				}
				r.printf("Cleared conversation %s.\n", r.g.conversationID)
				return nil
			})
		},
	}
}

func (r *runner) indexCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "index [file...]",
		Short: "Index files for document retrieval",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]model.DocumentInput, 0, len(args))
			for _, path := range args {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				docs = append(docs, model.DocumentInput{
					Content: string(b),
					Metadata: map[string]any{
						"type":   kind,
						"source": filepath.Base(path),
						"userId": r.g.userID,
					},
				})
			}
			return r.withApp(cmd, func(ctx context.Context, app *App) error {
				ids, err := app.Engine.IndexDocuments(ctx, docs)
				if err != nil {
					return err
				}
				if r.g.jsonOutput {
					return r.printJSON(ids)
				}
				for i, id := range ids {
					r.printf("%s\t%s\n", id, args[i])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "type", "document", "Value of the type metadata field")
	return cmd
}

func (r *runner) readyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check that every configured dependency answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *App) error {
				if err := app.Engine.Ready(ctx); err != nil {
					return fmt.Errorf("not ready: %w", err)
				}
				r.printf("ready\n")
				return nil
			})
		},
	}
}

func joinAgents(ids []model.AgentID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return strings.Join(names, ", ")
}
