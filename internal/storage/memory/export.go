package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SessionExport is the root JSON structure of a session recap
type SessionExport struct {
	StartedAt       string          `json:"startedAt"`
	EndedAt         string          `json:"endedAt"`
	FrameCount      uint            `json:"frameCount"`
	ScanCount       uint            `json:"scanCount"`
	Capsules        []CapsuleJSON   `json:"capsules"`
	ScanEvents      [][]any         `json:"scanEvents"`
	SelectionEvents [][]any         `json:"selectionEvents"`
}

// CapsuleJSON represents one capsule in the recap
type CapsuleJSON struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	HasImage  bool    `json:"hasImage"`
	HasVideo  bool    `json:"hasVideo"`
	HasAudio  bool    `json:"hasAudio"`
}

// exportJSON writes the session recap to a (possibly gzipped) JSON file.
// Caller must hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := b.session.StartedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("session_%s.json.gz", timestamp)
	} else {
		filename = fmt.Sprintf("session_%s.json", timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		StartedAt:       b.session.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		EndedAt:         b.session.EndedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		FrameCount:      b.session.FrameCount,
		ScanCount:       b.session.ScanCount,
		Capsules:        make([]CapsuleJSON, 0, len(b.capsules)),
		ScanEvents:      make([][]any, 0, len(b.scanEvents)),
		SelectionEvents: make([][]any, 0, len(b.selectionEvents)),
	}

	// Content is deliberately omitted; a recap lists existence only.
	for _, c := range b.capsules {
		export.Capsules = append(export.Capsules, CapsuleJSON{
			ID:        c.ID,
			Latitude:  c.Position.Lat,
			Longitude: c.Position.Lon,
			HasImage:  c.HasImage,
			HasVideo:  c.HasVideo,
			HasAudio:  c.HasAudio,
		})
	}

	// Format: [time, nearbyCount, cancelled]
	for _, evt := range b.scanEvents {
		export.ScanEvents = append(export.ScanEvents, []any{
			evt.Time.UTC().Format("2006-01-02T15:04:05Z07:00"),
			evt.NearbyCount,
			evt.Cancelled,
		})
	}

	// Format: [time, capsuleId, source, distance]
	for _, evt := range b.selectionEvents {
		export.SelectionEvents = append(export.SelectionEvents, []any{
			evt.Time.UTC().Format("2006-01-02T15:04:05Z07:00"),
			evt.CapsuleID,
			evt.Source,
			evt.Distance,
		})
	}

	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
