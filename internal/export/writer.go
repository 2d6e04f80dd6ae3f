package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cnc-frame-wizard/internal/slots"

	"github.com/rs/zerolog/log"
)

// DirName is the directory created under the export destination.
const DirName = "cnc"

// ErrNothingToExport is returned when every slot is empty. The previous
// export is left in place.
var ErrNothingToExport = errors.New("export: nothing to export")

// SideNames maps each side to its directory name.
type SideNames map[slots.Side]string

var (
	// LocalizedSides is the directory naming the machine controller expects.
	LocalizedSides = SideNames{slots.Left: "gauche", slots.Right: "droite"}
	// PlainSides names side directories after the side itself.
	PlainSides = SideNames{slots.Left: "left", slots.Right: "right"}
)

// ContentSource supplies the text to export for a slot.
type ContentSource interface {
	ManualContent(s slots.Slot) string
}

// Writer exports slot content into <dir>/cnc/<side>/<side>_<kind>.txt.
type Writer struct {
	sides SideNames
}

// NewWriter creates a Writer. A nil sides map selects LocalizedSides.
func NewWriter(sides SideNames) *Writer {
	if sides == nil {
		sides = LocalizedSides
	}
	return &Writer{sides: sides}
}

// Result describes a finished export.
type Result struct {
	Dir   string
	Files []string
}

// Export replaces <outputDir>/cnc with the current content of every slot.
// Slots with empty content are skipped; when all six are empty nothing is
// removed and ErrNothingToExport is returned. The first I/O failure aborts
// the export; files written before it are left in place.
func (w *Writer) Export(outputDir string, src ContentSource) (Result, error) {
	cncDir := filepath.Join(outputDir, DirName)

	if !hasContent(src) {
		return Result{}, ErrNothingToExport
	}

	if err := os.RemoveAll(cncDir); err != nil {
		return Result{}, fmt.Errorf("export: remove %s: %w", cncDir, err)
	}

	result := Result{Dir: cncDir}
	for _, side := range slots.Sides {
		sideDir := filepath.Join(cncDir, w.sideName(side))
		if err := os.MkdirAll(sideDir, 0755); err != nil {
			return result, fmt.Errorf("export: create %s: %w", sideDir, err)
		}

		for _, kind := range slots.Kinds {
			s := slots.Slot{Side: side, Kind: kind}
			content := src.ManualContent(s)
			if content == "" {
				continue
			}

			path := filepath.Join(sideDir, s.FileName())
			if err := os.WriteFile(path, []byte(ToCRLF(content)), 0644); err != nil {
				return result, fmt.Errorf("export: write %s: %w", path, err)
			}
			result.Files = append(result.Files, path)
		}
	}

	log.Info().Str("dir", cncDir).Int("files", len(result.Files)).Msg("Exported G-code files")
	return result, nil
}

func hasContent(src ContentSource) bool {
	for _, s := range slots.All {
		if src.ManualContent(s) != "" {
			return true
		}
	}
	return false
}

func (w *Writer) sideName(side slots.Side) string {
	if name, ok := w.sides[side]; ok && name != "" {
		return name
	}
	return string(side)
}

// ToCRLF converts line endings to CRLF. Input already using CRLF is not
// doubled.
func ToCRLF(s string) string {
	s = strings.ReplaceAll(s, "\n", "\r\n")
	return strings.ReplaceAll(s, "\r\r\n", "\r\n")
}
