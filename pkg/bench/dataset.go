package bench

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	TypeProcedural = "procedural"
	TypeGeneral    = "general"
)

// Task is one benchmark item.
type Task struct {
	ID             string `json:"id" yaml:"id"`
	Description    string `json:"description" yaml:"description"`
	ExpectedOutput string `json:"expected_output,omitempty" yaml:"expected_output,omitempty"`
	Type           string `json:"type,omitempty" yaml:"type,omitempty"`
	Level          int    `json:"level,omitempty" yaml:"level,omitempty"`
}

// LevelTasks groups the tasks of one difficulty level.
type LevelTasks struct {
	Level int
	Name  string
	Tasks []Task
}

// Loader reads level_<n>.json or level_<n>.yaml files from DataDir.
type Loader struct {
	DataDir string
}

func NewLoader(dataDir string) *Loader {
	return &Loader{DataDir: dataDir}
}

// LoadLevel returns the tasks of a level. A level without a data file
// yields a single placeholder task so the pipeline can run end to end.
func (l *Loader) LoadLevel(level int) ([]Task, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(l.DataDir, fmt.Sprintf("level_%d%s", level, ext))
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var tasks []Task
		if ext == ".json" {
			err = json.Unmarshal(data, &tasks)
		} else {
			err = yaml.Unmarshal(data, &tasks)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for i := range tasks {
			if tasks[i].Level == 0 {
				tasks[i].Level = level
			}
			if tasks[i].ID == "" {
				tasks[i].ID = fmt.Sprintf("L%d-%d", level, i+1)
			}
		}
		return tasks, nil
	}

	return []Task{mockTask(level)}, nil
}

// LoadAllLevels loads levels in the given order.
func (l *Loader) LoadAllLevels(levels []int) ([]LevelTasks, error) {
	out := make([]LevelTasks, 0, len(levels))
	for _, level := range levels {
		tasks, err := l.LoadLevel(level)
		if err != nil {
			return nil, err
		}
		out = append(out, LevelTasks{
			Level: level,
			Name:  fmt.Sprintf("Level %d", level),
			Tasks: tasks,
		})
	}
	return out, nil
}

func mockTask(level int) Task {
	return Task{
		ID:             fmt.Sprintf("L%d-1", level),
		Description:    fmt.Sprintf("Mock level %d task: Update the report and notify the team.", level),
		ExpectedOutput: "Success",
		Level:          level,
	}
}
