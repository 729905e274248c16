package tour

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifacts emits the four proof artifacts a stress-harness run
// produces into dir: metrics.json, viewmodel.hash, ansi.capture, and
// timetravel.capture.
func WriteArtifacts(a Artifacts, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tour: creating artifact directory: %w", err)
	}

	metricsJSON, err := json.MarshalIndent(a.Metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("tour: marshaling metrics.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metrics.json"), append(metricsJSON, '\n'), 0o644); err != nil {
		return fmt.Errorf("tour: writing metrics.json: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "viewmodel.hash"), []byte(string(a.ViewModelHash)+"\n"), 0o644); err != nil {
		return fmt.Errorf("tour: writing viewmodel.hash: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "ansi.capture"), []byte(a.ANSICapture), 0o644); err != nil {
		return fmt.Errorf("tour: writing ansi.capture: %w", err)
	}

	timeTravelJSON, err := json.MarshalIndent(a.TimeTravel, "", "  ")
	if err != nil {
		return fmt.Errorf("tour: marshaling timetravel.capture: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "timetravel.capture"), append(timeTravelJSON, '\n'), 0o644); err != nil {
		return fmt.Errorf("tour: writing timetravel.capture: %w", err)
	}

	return nil
}
