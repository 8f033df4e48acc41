package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/pathtrack/internal/config"
	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/sim"
)

var stateHeader = []string{
	"time", "x", "y", "heading", "v", "omega",
	"ref_x", "ref_y", "ref_heading", "e_x", "e_y", "e_theta",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string                  `json:"id"`
	Scenario    string                  `json:"scenario"`
	Timestamp   time.Time               `json:"timestamp"`
	Dt          float64                 `json:"dt"`
	Duration    float64                 `json:"duration"`
	Integrator  string                  `json:"integrator"`
	Fallback    string                  `json:"fallback"`
	Controller  config.ControllerConfig `json:"controller"`
	Start       nav.Pose                `json:"start"`
	Path        nav.Path                `json:"path"`
	Steps       int                     `json:"steps"`
	GoalReached bool                    `json:"goal_reached"`
	Fallbacks   int                     `json:"fallbacks"`
	Metrics     map[string]float64      `json:"metrics"`
}

// Record is one row of states.csv. The final row of a run has no command,
// lookahead or error and leaves them zero.
type Record struct {
	Time      float64
	Pose      nav.Pose
	Command   nav.ControlVector
	Lookahead nav.Pose
	Error     nav.ErrorState
}

// Save writes metadata.json and states.csv under a new run directory and
// returns the run ID. ID, Timestamp, Steps, GoalReached, Fallbacks and
// Metrics in meta are filled from the result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = fmt.Sprintf("%s-%s", meta.Scenario, uuid.New().String()[:8])
	meta.Timestamp = time.Now()
	meta.Steps = result.StepsTaken
	meta.GoalReached = result.GoalReached
	meta.Fallbacks = result.Fallbacks
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", fmt.Errorf("storage: write metadata: %w", err)
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), result); err != nil {
		return "", fmt.Errorf("storage: write states: %w", err)
	}
	return meta.ID, nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeStates(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(stateHeader); err != nil {
		return err
	}

	for i, x := range result.States {
		vals := make([]float64, 0, len(stateHeader))
		vals = append(vals, result.Times[i])
		p := x.Pose()
		vals = append(vals, p.X, p.Y, p.Heading)

		if i < len(result.Controls) {
			ref, e := result.Lookahead[i], result.Errors[i]
			vals = append(vals, result.Controls[i][0], result.Controls[i][1],
				ref.X, ref.Y, ref.Heading, e[0], e[1], e[2])
		} else {
			vals = append(vals, make([]float64, 8)...)
		}

		row := make([]string, len(vals))
		for j, v := range vals {
			row[j] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns all readable runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: parse metadata of %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadStates reads states.csv back. Rows that fail to parse are skipped.
func (s *Store) LoadStates(runID string) ([]Record, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return []Record{}, nil
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(stateHeader) {
			continue
		}
		v, ok := parseRow(row)
		if !ok {
			continue
		}
		records = append(records, Record{
			Time:      v[0],
			Pose:      nav.Pose{X: v[1], Y: v[2], Heading: v[3]},
			Command:   nav.ControlVector{V: v[4], Omega: v[5]},
			Lookahead: nav.Pose{X: v[6], Y: v[7], Heading: v[8]},
			Error:     nav.ErrorState{v[9], v[10], v[11]},
		})
	}
	return records, nil
}

func parseRow(row []string) ([]float64, bool) {
	out := make([]float64, len(row))
	for i, field := range row {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
