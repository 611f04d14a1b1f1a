package curation

import (
	"fmt"
	"strings"

	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/memory"
)

// FormatStep renders one think/action pair.
func FormatStep(think, action string) string {
	return fmt.Sprintf("<think>%s</think><action>%s</action>", think, action)
}

// ParseStep splits the first think/action pair of step.
func ParseStep(step string) (think, action string, ok bool) {
	think, ok = llm.Between(step, "<think>", "</think>")
	if !ok {
		return "", "", false
	}
	action, ok = llm.Between(step, "<action>", "</action>")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(think), strings.TrimSpace(action), true
}

// ExtractSubtasks returns a copy of the record's subtasks, never nil.
func ExtractSubtasks(rec *memory.MemoryRecord) []memory.SubtaskRecord {
	if rec == nil || len(rec.Subtasks) == 0 {
		return []memory.SubtaskRecord{}
	}
	out := make([]memory.SubtaskRecord, len(rec.Subtasks))
	copy(out, rec.Subtasks)
	return out
}
