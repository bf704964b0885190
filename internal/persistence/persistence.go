// Package persistence serializes analysis results in three shapes: a
// full-fidelity binary snapshot for later reloading, a JSON document for
// external consumers, and a flat CSV zone table for spreadsheet work.
package persistence

import (
	"encoding/gob"
	"encoding/json"
	"os"

	"github.com/quantlab/zoneanalyzer/internal/errs"
	"github.com/quantlab/zoneanalyzer/internal/models"
)

func init() {
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
	gob.Register("")
	gob.Register(0)
	gob.Register(int64(0))
	gob.Register(0.0)
	gob.Register(false)
}

// Save writes the result in the named format: "snapshot", "json" or
// "csv" (zone table only).
func Save(path, format string, result *models.AnalysisResult) error {
	switch format {
	case "snapshot":
		return SaveSnapshot(path, result)
	case "json":
		return SaveJSON(path, result)
	case "csv":
		return SaveZoneTable(path, result.Zones)
	default:
		return errs.NewConfigurationErrorf("unknown persistence format %q (want snapshot, json or csv)", format)
	}
}

// Load reads a result saved with Save. Each format restores what it
// retained: the zone table yields a result holding only the zones and
// their tabulated feature fields.
func Load(path, format string) (*models.AnalysisResult, error) {
	switch format {
	case "snapshot":
		return LoadSnapshot(path)
	case "json":
		return LoadJSON(path)
	case "csv":
		zones, err := LoadZoneTable(path)
		if err != nil {
			return nil, err
		}
		return &models.AnalysisResult{
			Zones:    zones,
			Metadata: models.RunMetadata{ZoneCount: len(zones)},
		}, nil
	default:
		return nil, errs.NewConfigurationErrorf("unknown persistence format %q (want snapshot, json or csv)", format)
	}
}

// SaveSnapshot writes the complete result, including per-zone datasets,
// so a later LoadSnapshot restores it without recomputation.
func SaveSnapshot(path string, result *models.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.NewDataErrorf("creating snapshot %s: %v", path, err)
	}
	if err := gob.NewEncoder(f).Encode(result); err != nil {
		f.Close()
		return errs.NewDataErrorf("encoding snapshot %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		return errs.NewDataErrorf("closing snapshot %s: %v", path, err)
	}
	return nil
}

// LoadSnapshot restores a result written by SaveSnapshot.
func LoadSnapshot(path string) (*models.AnalysisResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewDataErrorf("opening snapshot %s: %v", path, err)
	}
	defer f.Close()

	var result models.AnalysisResult
	if err := gob.NewDecoder(f).Decode(&result); err != nil {
		return nil, errs.NewDataErrorf("decoding snapshot %s: %v", path, err)
	}
	return &result, nil
}

// SaveJSON writes the result as an indented JSON document. The bulky
// per-zone and source datasets are excluded by the model's JSON tags.
func SaveJSON(path string, result *models.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.NewDataErrorf("creating document %s: %v", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		f.Close()
		return errs.NewDataErrorf("encoding document %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		return errs.NewDataErrorf("closing document %s: %v", path, err)
	}
	return nil
}

// LoadJSON reads a document written by SaveJSON.
func LoadJSON(path string) (*models.AnalysisResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewDataErrorf("opening document %s: %v", path, err)
	}
	defer f.Close()

	var result models.AnalysisResult
	if err := json.NewDecoder(f).Decode(&result); err != nil {
		return nil, errs.NewDataErrorf("decoding document %s: %v", path, err)
	}
	return &result, nil
}
