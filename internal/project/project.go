package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cnc-frame-wizard/internal/frame"
	"cnc-frame-wizard/internal/fsutil"

	"github.com/rs/zerolog/log"
)

// FileName is the snapshot file inside a project directory.
const FileName = "project.json"

// LegacyFileName is the snapshot file name used by older project directories.
const LegacyFileName = "config.json"

// Snapshot is a light record of resolved state: the dollar namespace and the
// generated G-code, not the type and profile definitions.
type Snapshot struct {
	DollarVariables frame.Vars        `json:"dollar_variables"`
	GeneratedGCodes map[string]string `json:"generated_gcodes"`
	Timestamp       time.Time         `json:"timestamp"`
}

// Save writes snap to <root>/<name>/project.json and returns the path.
func Save(root, name string, snap Snapshot) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(snap); err != nil {
		return "", fmt.Errorf("encode project: %w", err)
	}

	path := filepath.Join(root, name, FileName)
	if err := fsutil.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("save project %s: %w", name, err)
	}

	log.Info().Str("project", name).Str("path", path).Msg("Saved project")
	return path, nil
}

// Load reads a snapshot file.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read project: %w", err)
	}

	snap, err := Decode(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Decode parses a snapshot. Dollar-variable numbers come back as int when
// integral and float64 otherwise.
func Decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode project: %w", err)
	}
	for k, v := range snap.DollarVariables {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				snap.DollarVariables[k] = int(i)
			} else if f, err := n.Float64(); err == nil {
				snap.DollarVariables[k] = f
			}
		}
	}
	return snap, nil
}

// LoadByName reads <root>/<name>/project.json, falling back to the legacy
// config.json.
func LoadByName(root, name string) (Snapshot, error) {
	if err := validName(name); err != nil {
		return Snapshot{}, err
	}
	dir := filepath.Join(root, name)
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join(dir, LegacyFileName)
	}
	return Load(path)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid project name %q", name)
	}
	return nil
}
