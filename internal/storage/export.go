package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/pathtrack/internal/nav"
)

type ExportData struct {
	RunMetadata
	Times     []float64           `json:"times"`
	Poses     []nav.Pose          `json:"poses"`
	Commands  []nav.ControlVector `json:"commands"`
	Lookahead []nav.Pose          `json:"lookahead"`
	Errors    [][3]float64        `json:"errors"`
}

// ExportJSON writes a run's metadata and recorded states as one document.
func ExportJSON(w io.Writer, meta *RunMetadata, records []Record) error {
	data := ExportData{
		RunMetadata: *meta,
		Times:       make([]float64, len(records)),
		Poses:       make([]nav.Pose, len(records)),
		Commands:    make([]nav.ControlVector, len(records)),
		Lookahead:   make([]nav.Pose, len(records)),
		Errors:      make([][3]float64, len(records)),
	}

	for i, r := range records {
		data.Times[i] = r.Time
		data.Poses[i] = r.Pose
		data.Commands[i] = r.Command
		data.Lookahead[i] = r.Lookahead
		data.Errors[i] = [3]float64(r.Error)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
