package phase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cadre-run/cadre/internal/core"
)

// writeContext serializes payload as JSON into
// <ProgressDir>/contexts/<phase>.json and returns its path, so the agent
// invocation's ContextPath always resolves to a file on disk.
func writeContext(pc *Context, ph core.Phase, payload any) (string, error) {
	dir := filepath.Join(pc.ProgressDir, "contexts")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("phase: creating contexts dir: %w", err)
	}
	path := filepath.Join(dir, string(ph)+".json")
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("phase: marshaling context: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("phase: writing context: %w", err)
	}
	return path, nil
}

// outputPath returns <ProgressDir>/outputs/<name>, creating the outputs
// directory if needed.
func outputPath(pc *Context, name string) (string, error) {
	dir := filepath.Join(pc.ProgressDir, "outputs")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("phase: creating outputs dir: %w", err)
	}
	return filepath.Join(dir, name), nil
}
