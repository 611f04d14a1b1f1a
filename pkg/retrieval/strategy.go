package retrieval

import (
	"fmt"
	"strings"
)

// Strategy selects how memories are gathered for a task.
type Strategy string

const (
	// StrategyNone retrieves nothing (memory-free baseline).
	StrategyNone Strategy = "none"
	// StrategyVanilla retrieves whole-task memories up front.
	StrategyVanilla Strategy = "vanilla"
	// StrategyDynamic retrieves whole-task memories up front and subtask
	// memories just in time while delegating.
	StrategyDynamic Strategy = "dynamic"
	// StrategyQueryRewrite decomposes the task with the model first and
	// retrieves subtask memories for every rewritten step.
	StrategyQueryRewrite Strategy = "query_rewrite"
)

// ParseStrategy accepts the canonical names plus the spellings used by
// earlier benchmark configs ("Vanilla", "QueryRewrite", "baseline").
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "baseline":
		return StrategyNone, nil
	case "vanilla", "":
		return StrategyVanilla, nil
	case "dynamic":
		return StrategyDynamic, nil
	case "query_rewrite", "queryrewrite", "query-rewrite":
		return StrategyQueryRewrite, nil
	default:
		return "", fmt.Errorf("unknown retrieval strategy: %q", s)
	}
}

// JustInTime reports whether the orchestrator should look up subtask
// memories for every delegated step.
func (s Strategy) JustInTime() bool {
	return s == StrategyDynamic
}

func (s Strategy) String() string {
	return string(s)
}
