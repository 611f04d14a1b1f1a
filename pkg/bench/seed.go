package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/legomem/pkg/memory"
	"gopkg.in/yaml.v3"
)

// DefaultSeeds returns the records the benchmark banks start from.
func DefaultSeeds() []memory.MemoryRecord {
	return []memory.MemoryRecord{
		{
			TaskDescription: "What is Bob's specific internal ID mentioned in the LEGOMem Standard Protocol?",
			HighLevelPlan:   "1. Access LEGOMem Personnel Records. 2. Retrieve Bob's ID 'B-99'.",
			Subtasks: []memory.SubtaskRecord{
				{Agent: "id_agent", Description: "Retrieve Bob's ID 'B-99'"},
			},
			FinalAnswer: "B-99",
		},
	}
}

// LoadSeeds reads records from a JSON or YAML file.
func LoadSeeds(path string) ([]memory.MemoryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seeds: %w", err)
	}

	var records []memory.MemoryRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		err = json.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse seeds %s: %w", path, err)
	}
	return records, nil
}

// Seed stores every record and its subtask projections. It returns the
// number of task records added.
func Seed(ctx context.Context, taskBank, subtaskBank *memory.Store, records []memory.MemoryRecord) (int, error) {
	added := 0
	for _, rec := range records {
		ok, err := Store(ctx, taskBank, subtaskBank, rec)
		if err != nil {
			return added, fmt.Errorf("failed to seed %q: %w", rec.TaskDescription, err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}
