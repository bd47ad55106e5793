package prompts

import (
	"context"
	"fmt"
	"sort"
)

// TaskTemplate is a rendered issue skeleton for a task kind.
type TaskTemplate struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type taskKind struct {
	title string
	key   string
	tags  []string
}

var taskKinds = map[string]taskKind{
	"bug":      {title: "[BUG] {summary}", key: "task_bug", tags: []string{"bug", "needs-investigation"}},
	"feature":  {title: "[FEATURE] {summary}", key: "task_feature", tags: []string{"feature", "enhancement"}},
	"refactor": {title: "[REFACTOR] {summary}", key: "task_refactor", tags: []string{"refactor", "technical-debt"}},
}

// TaskKinds lists the supported task template kinds.
func TaskKinds() []string {
	kinds := make([]string, 0, len(taskKinds))
	for k := range taskKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// RenderTaskTemplate fills the title and description skeleton for kind.
func (r *Renderer) RenderTaskTemplate(ctx context.Context, kind string, vars map[string]any) (*TaskTemplate, error) {
	k, ok := taskKinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown task template %q", kind)
	}
	title, err := r.substitute(k.title, vars)
	if err != nil {
		return nil, fmt.Errorf("render %s title: %w", kind, err)
	}
	desc, err := r.Render(ctx, k.key, vars)
	if err != nil {
		return nil, err
	}
	tags := make([]string, len(k.tags))
	copy(tags, k.tags)
	return &TaskTemplate{Title: title, Description: desc, Tags: tags}, nil
}
