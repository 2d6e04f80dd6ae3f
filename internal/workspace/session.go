package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"cnc-frame-wizard/internal/fsutil"
	"cnc-frame-wizard/internal/slots"

	"github.com/rs/zerolog/log"
)

// session is the operator state that outlives a single command: the profile
// selection and the six slots, manual locks included.
type session struct {
	HingeProfile string                   `json:"hinge_profile"`
	LockProfile  string                   `json:"lock_profile"`
	Slots        map[string]slots.Content `json:"slots"`
}

// loadSession reads the session file. A missing or unreadable file starts a
// fresh session.
func loadSession(path string) session {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return session{}
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to read session, starting fresh")
		return session{}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return session{}
	}

	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to parse session, starting fresh")
		return session{}
	}
	return s
}

func saveSession(path string, s session) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
