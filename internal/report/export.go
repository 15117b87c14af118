package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary describes one whole run of the wrapper
type Summary struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Command    string    `json:"command" yaml:"command"`
	ArgCount   int       `json:"arg_count" yaml:"arg_count"`
	InputBytes int       `json:"input_bytes" yaml:"input_bytes"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	ExitCode   int       `json:"exit_code" yaml:"exit_code"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Attempts   []Attempt `json:"attempts" yaml:"attempts"`
}

// Retries returns how many times the user chose to retry
func (s *Summary) Retries() int {
	n := 0
	for _, a := range s.Attempts {
		if a.Decision == DecisionRetry {
			n++
		}
	}
	return n
}

// Fields returns the summary as structured log fields
func (s *Summary) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"command":   s.Command,
		"attempts":  len(s.Attempts),
		"retries":   s.Retries(),
		"exit_code": s.ExitCode,
		"runtime":   s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String(),
	}
	if s.Error != "" {
		f["error"] = s.Error
	}
	return f
}

// Marshal encodes the summary as JSON when format is "json", YAML otherwise
func (s *Summary) Marshal(format string) ([]byte, error) {
	if format == "json" {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(s)
}

// FormatForPath picks the encoding from the file extension
func FormatForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

// WriteFile writes the summary to path, encoding chosen by extension
func (s *Summary) WriteFile(path string) error {
	data, err := s.Marshal(FormatForPath(path))
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}
