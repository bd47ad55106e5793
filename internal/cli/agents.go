package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zenai/agentcore/internal/agent/agents"
	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/transcription"
)

var languageByExt = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".ts":   "typescript",
	".py":   "python",
	".java": "java",
	".rb":   "ruby",
	".rs":   "rust",
	".sql":  "sql",
}

// perform runs op and prints its result. Text results print as is unless --json is set.
func (r *runner) perform(cmd *cobra.Command, op agents.Operation) error {
	return r.withApp(cmd, func(ctx context.Context, app *App) error {
		out, err := app.Agents.Perform(ctx, op)
		if err != nil {
			return err
		}
		if s, ok := out.(string); ok && !r.g.jsonOutput {
			r.printf("%s\n", s)
			return nil
		}
		return r.printJSON(out)
	})
}

func (r *runner) analyzeTaskCmd() *cobra.Command {
	var (
		title       string
		projectCtx  string
		estimateAll bool
	)
	cmd := &cobra.Command{
		Use:   "analyze-task [description]",
		Short: "Estimate the complexity of a task",
		Long:  "Estimate the complexity of a task. With --effort every argument is one task and the\ntask analyzer estimates the effort of the whole set.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if estimateAll {
				tasks := make([]model.TaskSpec, len(args))
				for i, a := range args {
					tasks[i] = model.TaskSpec{Title: a, Description: a}
				}
				return r.perform(cmd, agents.EstimateEffortOp{Tasks: tasks})
			}
			desc := strings.Join(args, " ")
			if title == "" {
				title = desc
			}
			return r.perform(cmd, agents.AnalyzeComplexityOp{
				Task:           model.TaskSpec{Title: title, Description: desc},
				ProjectContext: projectCtx,
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Task title (defaults to the description)")
	cmd.Flags().StringVar(&projectCtx, "context", "", "Project context for the estimate")
	cmd.Flags().BoolVar(&estimateAll, "effort", false, "Estimate effort for every argument as a separate task")
	return cmd
}

func (r *runner) reviewCodeCmd() *cobra.Command {
	var (
		language    string
		description string
		mode        string
	)
	cmd := &cobra.Command{
		Use:   "review-code [file]",
		Short: "Review a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			lang := language
			if lang == "" {
				lang = languageByExt[strings.ToLower(filepath.Ext(args[0]))]
			}
			code := string(b)
			switch mode {
			case "review":
				return r.perform(cmd, agents.ReviewCodeOp{Code: code, Language: lang, Description: description})
			case "refactor":
				return r.perform(cmd, agents.SuggestRefactoringOp{Code: code, Language: lang})
			case "security":
				return r.perform(cmd, agents.DetectSecurityIssuesOp{Code: code, Language: lang})
			}
			return fmt.Errorf("unknown mode %q: use review, refactor or security", mode)
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Language of the file (defaults from the extension)")
	cmd.Flags().StringVar(&description, "description", "", "What the change does")
	cmd.Flags().StringVar(&mode, "mode", "review", "review, refactor or security")
	return cmd
}

func (r *runner) summarizeMeetingCmd() *cobra.Command {
	var (
		info    model.MeetingInfo
		actions bool
		report  bool
	)
	cmd := &cobra.Command{
		Use:   "summarize-meeting [audio-or-transcript]",
		Short: "Summarize a meeting recording or transcript",
		Long: "Summarize a meeting. Audio files (" + strings.Join(transcription.SupportedFormats, " ") + ") are transcribed first;\n" +
			"any other file is read as a transcript.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if slices.Contains(transcription.SupportedFormats, strings.ToLower(filepath.Ext(path))) {
				return r.perform(cmd, agents.TranscribeAndSummarizeOp{Path: path, Meeting: info})
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			transcript := string(b)
			switch {
			case actions:
				return r.perform(cmd, agents.ExtractActionItemsOp{Transcript: transcript})
			case report:
				return r.perform(cmd, agents.GenerateMeetingReportOp{Data: map[string]any{
					"meeting":    info,
					"transcript": transcript,
				}})
			}
			return r.perform(cmd, agents.GenerateSummaryOp{Transcript: transcript, Meeting: info})
		},
	}
	cmd.Flags().StringVar(&info.Title, "title", "", "Meeting title")
	cmd.Flags().StringVar(&info.Date, "date", "", "Meeting date")
	cmd.Flags().StringSliceVar(&info.Participants, "participants", nil, "Comma separated participants")
	cmd.Flags().BoolVar(&actions, "actions", false, "Only extract action items from a transcript")
	cmd.Flags().BoolVar(&report, "report", false, "Write a markdown report from a transcript")
	return cmd
}
