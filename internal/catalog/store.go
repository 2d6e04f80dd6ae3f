package catalog

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound is returned when a named type or profile does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when a rename or add would overwrite another entry.
	ErrExists = errors.New("already exists")
)

// Store holds the type and profile mappings of every category plus the
// per-side frame templates. It is not safe for concurrent use; the
// workspace serializes all mutations.
type Store struct {
	doc Document
}

// NewStore creates a Store that takes ownership of doc.
func NewStore(doc Document) *Store {
	doc.normalize()
	return &Store{doc: doc}
}

// Document returns the underlying document for persistence.
func (s *Store) Document() Document {
	return s.doc
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	return &Store{doc: s.doc.clone()}
}

func (s *Store) library(cat Category) *Library {
	switch cat {
	case Lock:
		return &s.doc.Locks
	default:
		return &s.doc.Hinges
	}
}

// Type looks up a type by name. A missing type is a normal outcome.
func (s *Store) Type(cat Category, name string) (Type, bool) {
	t, ok := s.library(cat).Types[name]
	return t, ok
}

// Profile looks up a profile by name.
func (s *Store) Profile(cat Category, name string) (Profile, bool) {
	p, ok := s.library(cat).Profiles[name]
	return p, ok
}

// TypeNames returns the type names of a category, sorted.
func (s *Store) TypeNames(cat Category) []string {
	return sortedKeys(s.library(cat).Types)
}

// ProfileNames returns the profile names of a category, sorted.
func (s *Store) ProfileNames(cat Category) []string {
	return sortedKeys(s.library(cat).Profiles)
}

// PutType inserts or replaces a type.
func (s *Store) PutType(cat Category, t Type) error {
	if t.Name == "" {
		return fmt.Errorf("put %s type: empty name", cat)
	}
	s.library(cat).Types[t.Name] = t
	return nil
}

// DeleteType removes a type. Profiles referencing it are left dangling.
func (s *Store) DeleteType(cat Category, name string) error {
	lib := s.library(cat)
	if _, ok := lib.Types[name]; !ok {
		return fmt.Errorf("delete %s type %q: %w", cat, name, ErrNotFound)
	}
	delete(lib.Types, name)
	return nil
}

// RenameType moves a type to a new name by deleting the old entry and
// inserting the new one. Profile references are not rewritten.
func (s *Store) RenameType(cat Category, oldName, newName string) error {
	lib := s.library(cat)
	t, ok := lib.Types[oldName]
	if !ok {
		return fmt.Errorf("rename %s type %q: %w", cat, oldName, ErrNotFound)
	}
	if oldName == newName {
		return nil
	}
	if _, taken := lib.Types[newName]; taken {
		return fmt.Errorf("rename %s type to %q: %w", cat, newName, ErrExists)
	}

	delete(lib.Types, oldName)
	t.Name = newName
	lib.Types[newName] = t
	return nil
}

// PutProfile inserts or replaces a profile. The referenced type is not
// required to exist.
func (s *Store) PutProfile(cat Category, p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("put %s profile: empty name", cat)
	}
	s.library(cat).Profiles[p.Name] = p
	return nil
}

// DeleteProfile removes a profile.
func (s *Store) DeleteProfile(cat Category, name string) error {
	lib := s.library(cat)
	if _, ok := lib.Profiles[name]; !ok {
		return fmt.Errorf("delete %s profile %q: %w", cat, name, ErrNotFound)
	}
	delete(lib.Profiles, name)
	return nil
}

// RenameProfile moves a profile to a new name (delete old, insert new).
func (s *Store) RenameProfile(cat Category, oldName, newName string) error {
	lib := s.library(cat)
	p, ok := lib.Profiles[oldName]
	if !ok {
		return fmt.Errorf("rename %s profile %q: %w", cat, oldName, ErrNotFound)
	}
	if oldName == newName {
		return nil
	}
	if _, taken := lib.Profiles[newName]; taken {
		return fmt.Errorf("rename %s profile to %q: %w", cat, newName, ErrExists)
	}

	delete(lib.Profiles, oldName)
	p.Name = newName
	lib.Profiles[newName] = p
	return nil
}

// ProfileGCode returns the raw template of the profile's referenced type, or
// the empty string when the reference dangles.
func (s *Store) ProfileGCode(cat Category, p Profile) string {
	t, ok := s.Type(cat, p.Type)
	if !ok {
		return ""
	}
	return t.GCode
}

// FrameGCode returns the per-side frame templates.
func (s *Store) FrameGCode() FrameGCode {
	return s.doc.FrameGCode
}

// SetFrameGCode replaces the frame template for one side ("left" or "right").
func (s *Store) SetFrameGCode(side, gcode string) error {
	switch side {
	case "left":
		s.doc.FrameGCode.Left = gcode
	case "right":
		s.doc.FrameGCode.Right = gcode
	default:
		return fmt.Errorf("set frame gcode: unknown side %q", side)
	}
	return nil
}

// DanglingProfiles returns the names of profiles whose type does not exist.
func (s *Store) DanglingProfiles(cat Category) []string {
	lib := s.library(cat)
	var out []string
	for name, p := range lib.Profiles {
		if _, ok := lib.Types[p.Type]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
