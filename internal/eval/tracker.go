package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Tracker persists evaluation runs as one JSON file each. Files are never
// overwritten; every LogRun produces a new record.
type Tracker struct {
	dir string
}

// NewTracker creates a tracker writing into dir, creating it if needed.
func NewTracker(dir string) (*Tracker, error) {
	if dir == "" {
		return nil, fmt.Errorf("tracker directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create tracker directory: %w", err)
	}
	return &Tracker{dir: dir}, nil
}

// LogRun writes the run to a new file and returns its path. The file name
// embeds the creation timestamp, variant and run id, so two runs logged in
// the same second still get distinct files.
func (t *Tracker) LogRun(run *Run) (string, error) {
	name := fmt.Sprintf("run_%s", run.CreatedAt.Format("20060102T150405"))
	if run.Config.Variant != "" {
		name += "_" + sanitize(run.Config.Variant)
	}
	name += "_" + run.ID[:8] + ".json"
	path := filepath.Join(t.dir, name)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create run file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("write run file: %w", err)
	}
	return path, nil
}

// LoadRuns reads every persisted run, ordered by creation time.
func (t *Tracker) LoadRuns() ([]*Run, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return nil, fmt.Errorf("read tracker directory: %w", err)
	}

	var runs []*Run
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(t.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read run file %s: %w", e.Name(), err)
		}
		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("parse run file %s: %w", e.Name(), err)
		}
		runs = append(runs, &run)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
	return runs, nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}
