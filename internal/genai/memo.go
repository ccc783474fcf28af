package genai

import (
	"strings"
	"time"
)

// MemoSchema returns the JSON schema the assistant must answer with: a
// classification of whether the user's text describes a task, plus the
// normalized task fields.
func MemoSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]SchemaProperty{
			"isMemo":   {Type: "boolean", Description: "Whether the text describes a task, memo, work item, or plan"},
			"content":  {Type: "string", Description: "The task body"},
			"dueDate":  {Type: "string", Description: "Task deadline (YYYY-MM-DD)"},
			"priority": {Type: "string", Description: "Task priority (HIGH, MEDIUM, LOW)"},
			"category": {Type: "string", Description: "Task kind (TASK, MEMO, WORK, PLANNING)"},
		},
		Required: []string{"isMemo", "content", "dueDate"},
	}
}

// MemoInstruction builds the system instruction pinning today's date and
// restricting the assistant to task management.
func MemoInstruction(now time.Time) string {
	lines := []string{
		"Today's date: " + now.Format("2006-01-02"),
		"You are a task management assistant. You only handle tasks and work items.",
		"You reply in JSON.",
		"For greetings, questions, or anything that is not a task, set isMemo to false.",
		"If you cannot understand the user, set isMemo to false.",
		"When replying, produce an object with the task body, due date, priority, and task kind.",
	}
	return strings.Join(lines, "\n")
}
