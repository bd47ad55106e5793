package agents

import (
	"context"
	"strings"
	"time"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/parsers"
	"github.com/zenai/agentcore/internal/agent/prompts"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/transcription"
	logx "github.com/zenai/agentcore/pkg/logger"
)

type MeetingSummary struct {
	ExecutiveSummary string   `json:"executiveSummary"`
	KeyPoints        []string `json:"keyPoints"`
	Decisions        []string `json:"decisions"`
	NextSteps        []string `json:"nextSteps"`
	Questions        []string `json:"questions"`
	Blockers         []string `json:"blockers"`
}

type ActionItem struct {
	Action   string `json:"action"`
	Owner    string `json:"owner,omitempty"`
	DueDate  string `json:"dueDate,omitempty"`
	Priority string `json:"priority"`
	Context  string `json:"context,omitempty"`
}

type MeetingMetadata struct {
	Duration     float64  `json:"duration"`
	Participants []string `json:"participants"`
	Date         string   `json:"date"`
}

// MeetingReport is the result of transcribing and summarizing a recording.
type MeetingReport struct {
	Transcript  *transcription.Transcript `json:"transcript"`
	Summary     *MeetingSummary           `json:"summary"`
	ActionItems []ActionItem              `json:"actionItems"`
	Metadata    MeetingMetadata           `json:"metadata"`
}

const defaultMeetingTitle = "Team Meeting"

var (
	meetingSummaryShape = parsers.NewShape(
		parsers.Field{Name: "executiveSummary", Type: parsers.TypeString},
		parsers.Field{Name: "keyPoints", Type: parsers.TypeArray},
	)
	actionItemShape = parsers.NewShape(
		parsers.Field{Name: "action", Type: parsers.TypeString},
	)
)

// MeetingSummarizer turns transcripts into summaries, action items and reports.
type MeetingSummarizer struct {
	*Base
	transcriber transcription.Transcriber
}

func (a *MeetingSummarizer) GenerateSummary(ctx context.Context, transcript string, info model.MeetingInfo) (*MeetingSummary, error) {
	var out MeetingSummary
	err := a.object(ctx, "generateSummary", prompts.GenerateSummary, a.meetingVars(transcript, info), meetingSummaryShape, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *MeetingSummarizer) ExtractActionItems(ctx context.Context, transcript string) ([]ActionItem, error) {
	var out []ActionItem
	err := a.array(ctx, "extractActionItems", prompts.ExtractActionItems, map[string]any{
		"transcript": transcript,
	}, actionItemShape, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateMeetingReport renders data, typically a MeetingReport, as a markdown report.
func (a *MeetingSummarizer) GenerateMeetingReport(ctx context.Context, data any) (string, error) {
	return a.text(ctx, "generateMeetingReport", prompts.GenerateMeetingReport, map[string]any{
		"summary": data,
	})
}

// TranscribeAndSummarize transcribes the recording at path, then summarizes it and
// extracts action items from the transcript.
func (a *MeetingSummarizer) TranscribeAndSummarize(ctx context.Context, path string, info model.MeetingInfo) (*MeetingReport, error) {
	if a.transcriber == nil {
		return nil, errx.Configuration("meeting summarizer has no transcriber")
	}
	log := logx.Ctx(ctx)

	log.Info().Str("path", path).Msg("transcribing meeting")
	transcript, err := a.transcriber.Transcribe(ctx, path, transcription.Options{})
	if err != nil {
		return nil, err
	}

	log.Info().Msg("summarizing meeting")
	summary, err := a.GenerateSummary(ctx, transcript.Text, info)
	if err != nil {
		return nil, err
	}

	log.Info().Msg("extracting action items")
	items, err := a.ExtractActionItems(ctx, transcript.Text)
	if err != nil {
		return nil, err
	}

	participants := info.Participants
	if participants == nil {
		participants = []string{}
	}
	return &MeetingReport{
		Transcript:  transcript,
		Summary:     summary,
		ActionItems: items,
		Metadata: MeetingMetadata{
			Duration:     transcript.Duration,
			Participants: participants,
			Date:         a.now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (a *MeetingSummarizer) meetingVars(transcript string, info model.MeetingInfo) map[string]any {
	title := info.Title
	if title == "" {
		title = defaultMeetingTitle
	}
	date := info.Date
	if date == "" {
		date = a.now().UTC().Format(time.RFC3339)
	}
	participants := "N/A"
	if len(info.Participants) > 0 {
		participants = strings.Join(info.Participants, ", ")
	}
	return map[string]any{
		"title":        title,
		"date":         date,
		"participants": participants,
		"transcript":   transcript,
	}
}
