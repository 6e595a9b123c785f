// Package manifest parses the JSON job manifest fed to batchrund run.
// The manifest stands in for a scheduler handing over ready jobs.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"batchrun/internal/apperrors"
	"batchrun/internal/executor"
)

// Entry is one job in the manifest.
type Entry struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Env     map[string]string `json:"env,omitempty"`
}

type manifest struct {
	Jobs []Entry `json:"jobs"`
}

// Load reads and parses a manifest file.
func Load(path string) ([]*executor.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Internal("manifest.open", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a manifest and validates every entry.
func Parse(r io.Reader) ([]*executor.Job, error) {
	var m manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, apperrors.Validation("manifest", fmt.Sprintf("malformed manifest: %v", err))
	}

	if len(m.Jobs) == 0 {
		return nil, apperrors.Validation("jobs", "manifest contains no jobs")
	}

	seen := make(map[string]bool, len(m.Jobs))
	jobs := make([]*executor.Job, 0, len(m.Jobs))
	for i, entry := range m.Jobs {
		if entry.Name == "" {
			return nil, apperrors.Validation("jobs", fmt.Sprintf("job %d has no name", i))
		}
		if entry.Command == "" {
			return nil, apperrors.Validation("jobs", fmt.Sprintf("job %q has no command", entry.Name))
		}
		if seen[entry.Name] {
			return nil, apperrors.Validation("jobs", fmt.Sprintf("duplicate job name %q", entry.Name))
		}
		seen[entry.Name] = true

		jobs = append(jobs, &executor.Job{
			Name:    entry.Name,
			Command: entry.Command,
			Env:     entry.Env,
			Handle:  entry.Name,
		})
	}

	return jobs, nil
}
