package model

import "time"

// TaskSpec is the minimal description of a task or epic handed to agents.
type TaskSpec struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// ProjectSnapshot is the project state used for health analysis.
type ProjectSnapshot struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Deadline string `json:"deadline,omitempty"`
}

// TaskCounts aggregates a task list for prompts.
type TaskCounts struct {
	Total      int
	Done       int
	InProgress int
	Overdue    int
}

// CountTasks tallies tasks by status. Tasks with a due date before now and not done are overdue.
func CountTasks(tasks []TaskSpec, now time.Time) TaskCounts {
	c := TaskCounts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case "done":
			c.Done++
			continue
		case "in-progress":
			c.InProgress++
		}
		if t.DueDate == "" {
			continue
		}
		if due, err := time.Parse(time.RFC3339, t.DueDate); err == nil && due.Before(now) {
			c.Overdue++
		} else if due, err := time.Parse("2006-01-02", t.DueDate); err == nil && due.Before(now) {
			c.Overdue++
		}
	}
	return c
}

// MeetingInfo is optional context for meeting operations.
type MeetingInfo struct {
	Title        string   `json:"title,omitempty"`
	Date         string   `json:"date,omitempty"`
	Participants []string `json:"participants,omitempty"`
}
