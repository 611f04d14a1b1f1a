package agent

import (
	"strings"

	"github.com/harun/legomem/pkg/llm"
)

// Pool picks the worker for a subtask.
type Pool interface {
	Pick(subtask string) Worker
}

// StaticPool hands every subtask to the same worker.
type StaticPool struct {
	worker Worker
}

func NewStaticPool(worker Worker) *StaticPool {
	return &StaticPool{worker: worker}
}

func (p *StaticPool) Pick(string) Worker { return p.worker }

// Route sends subtasks mentioning any of Keywords to Worker.
type Route struct {
	Keywords []string
	Worker   Worker
}

// RoutedPool matches routes in order and falls back to a default worker.
type RoutedPool struct {
	fallback Worker
	routes   []Route
}

func NewRoutedPool(fallback Worker, routes ...Route) *RoutedPool {
	return &RoutedPool{fallback: fallback, routes: routes}
}

// Pick matches keywords case-insensitively against the subtask text.
func (p *RoutedPool) Pick(subtask string) Worker {
	text := strings.ToLower(subtask)
	for _, r := range p.routes {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				return r.Worker
			}
		}
	}
	return p.fallback
}

// DefaultRoutes wires the calendar, email and file agents to one completer.
func DefaultRoutes(completer llm.Completer) []Route {
	return []Route{
		{
			Keywords: []string{"calendar", "meeting", "schedule", "event"},
			Worker:   NewTaskAgent("calendar_agent", completer),
		},
		{
			Keywords: []string{"email", "mail", "inbox", "reply", "send"},
			Worker:   NewTaskAgent("email_agent", completer),
		},
		{
			Keywords: []string{"file", "document", "report", "folder", "spreadsheet"},
			Worker:   NewTaskAgent("file_agent", completer),
		},
	}
}
