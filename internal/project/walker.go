package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Entry is a discovered project directory.
type Entry struct {
	Name    string
	Path    string
	ModTime time.Time
	Legacy  bool
}

// Walk discovers every project directory directly under root. A directory
// holding project.json wins over a legacy config.json. A missing root yields
// no entries.
func Walk(root string) ([]Entry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve projects root: %w", err)
	}

	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat projects root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("projects root is not a directory: %s", root)
	}

	found := make(map[string]Entry)

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}

		if info.IsDir() {
			// Projects live one level below root.
			if path != root && filepath.Dir(path) != root {
				return filepath.SkipDir
			}
			return nil
		}

		base := filepath.Base(path)
		if base != FileName && base != LegacyFileName {
			return nil
		}

		name := filepath.Base(filepath.Dir(path))
		if filepath.Dir(path) == root {
			return nil
		}

		legacy := base == LegacyFileName
		if prev, ok := found[name]; ok && !prev.Legacy {
			return nil
		}
		found[name] = Entry{Name: name, Path: path, ModTime: info.ModTime(), Legacy: legacy}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk projects: %w", err)
	}

	entries := make([]Entry, 0, len(found))
	for _, e := range found {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	log.Debug().Int("count", len(entries)).Str("root", root).Msg("Discovered projects")
	return entries, nil
}
