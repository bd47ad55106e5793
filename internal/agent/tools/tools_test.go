package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/transcription"
)

type fakeTranscriber struct{ path, lang string }

func (f *fakeTranscriber) Transcribe(_ context.Context, path string, opts transcription.Options) (*transcription.Transcript, error) {
	f.path, f.lang = path, opts.Language
	return &transcription.Transcript{Text: "we ship friday", Duration: 3}, nil
}

func TestRegistry_BuildUnknown(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.Build([]string{CreateTask, "send_email"})
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))

	_, err = r.Build([]string{TranscribeAudio})
	assert.True(t, errx.IsKind(err, errx.KindConfiguration), "transcription needs a transcriber")
}

func TestRegistry_Names(t *testing.T) {
	assert.NotContains(t, NewRegistry(nil, nil).Names(), TranscribeAudio)
	assert.Contains(t, NewRegistry(nil, &fakeTranscriber{}).Names(), TranscribeAudio)
}

func TestCreateTask(t *testing.T) {
	set, err := NewRegistry(NopBackend{}, nil).Build([]string{CreateTask})
	require.NoError(t, err)

	out, err := set[CreateTask].InvokableRun(context.Background(), `{"title":"Write release notes","priority":"high"}`)
	require.NoError(t, err)
	var got Output
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Task created: Write release notes", got.Message)

	_, err = set[CreateTask].InvokableRun(context.Background(), `{"description":"no title"}`)
	assert.Error(t, err)
}

func TestPrioritizeTasks(t *testing.T) {
	set, err := NewRegistry(nil, nil).Build([]string{PrioritizeTasks})
	require.NoError(t, err)

	out, err := set[PrioritizeTasks].InvokableRun(context.Background(), `{"tasks":[
		{"title":"docs","priority":"low"},
		{"title":"hotfix","priority":"urgent"},
		{"title":"b","priority":"high","due_date":"2026-03-02"},
		{"title":"a","priority":"high","due_date":"2026-03-01"},
		{"title":"c","priority":"high"}
	]}`)
	require.NoError(t, err)
	var got Output
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []any{"hotfix", "a", "b", "c", "docs"}, got.Data["order"])
}

func TestTranscribeAudio(t *testing.T) {
	ft := &fakeTranscriber{}
	set, err := NewRegistry(nil, ft).Build([]string{TranscribeAudio})
	require.NoError(t, err)

	out, err := set[TranscribeAudio].InvokableRun(context.Background(), `{"path":"/tmp/standup.mp3","language":"th"}`)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/standup.mp3", ft.path)
	assert.Equal(t, "th", ft.lang)
	assert.Contains(t, out, "we ship friday")
}

func TestInfos(t *testing.T) {
	set, err := NewRegistry(nil, nil).Build([]string{AnalyzeCode, CreateTask})
	require.NoError(t, err)
	infos, err := Infos(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, AnalyzeCode, infos[0].Name)
	assert.Equal(t, CreateTask, infos[1].Name)
}
