// Package workspace holds the application state of one data directory: the
// profile catalog, the frame configuration, the current profile selection and
// the six generated slots. Every mutation is persisted and followed by a
// regeneration pass whose result is pushed to registered listeners.
package workspace

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"cnc-frame-wizard/internal/catalog"
	"cnc-frame-wizard/internal/export"
	"cnc-frame-wizard/internal/frame"
	"cnc-frame-wizard/internal/fsutil"
	"cnc-frame-wizard/internal/generator"
	"cnc-frame-wizard/internal/project"
	"cnc-frame-wizard/internal/slots"

	"github.com/rs/zerolog/log"
)

// Paths locates the files a workspace reads and writes.
type Paths struct {
	Current  string
	SavedDir string
	Session  string
	Frame    string
	Projects string
}

// PathsFor lays out the standard files under dataDir.
func PathsFor(dataDir string) Paths {
	return Paths{
		Current:  filepath.Join(dataDir, "profiles", "current.json"),
		SavedDir: filepath.Join(dataDir, "profiles", "saved"),
		Session:  filepath.Join(dataDir, "profiles", "session.json"),
		Frame:    filepath.Join(dataDir, "frame.yaml"),
		Projects: filepath.Join(dataDir, "projects"),
	}
}

// Update is delivered to listeners after each regeneration.
type Update struct {
	Files   slots.Snapshot
	Changed []slots.Slot
}

// Listener receives regeneration results.
type Listener func(Update)

// Option configures a Workspace.
type Option func(*Workspace)

// WithSideNames selects the export directory names.
func WithSideNames(sides export.SideNames) Option {
	return func(w *Workspace) { w.writer = export.NewWriter(sides) }
}

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// Workspace is safe for concurrent use.
type Workspace struct {
	mu sync.Mutex

	paths      Paths
	store      *catalog.Store
	engine     *generator.Engine
	tracker    *slots.Tracker
	frame      *frame.Configuration
	frameFound bool
	hinge      string
	lock       string

	listeners []Listener
	writer    *export.Writer
	now       func() time.Time
}

// Open loads the workspace rooted at dataDir and runs a first regeneration.
// A missing or corrupt profile document is replaced by a default one; a
// missing frame.yaml yields the default frame. A frame.yaml that cannot be
// parsed is an error.
func Open(dataDir string, opts ...Option) (*Workspace, error) {
	return OpenPaths(PathsFor(dataDir), opts...)
}

// OpenPaths is Open with explicit file locations.
func OpenPaths(paths Paths, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		paths:   paths,
		tracker: slots.NewTracker(),
		writer:  export.NewWriter(nil),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.load(); err != nil {
		return nil, err
	}

	sess := loadSession(paths.Session)
	w.hinge = sess.HingeProfile
	w.lock = sess.LockProfile
	w.tracker.Restore(slots.FromNamed(sess.Slots))

	w.regenerate()

	log.Debug().
		Str("hinge_profile", w.hinge).
		Str("lock_profile", w.lock).
		Bool("frame_file", w.frameFound).
		Msg("Opened workspace")
	return w, nil
}

func (w *Workspace) load() error {
	store, err := catalog.Load(w.paths.Current)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	return w.install(store)
}

// install reads the frame configuration and swaps in store. Nothing changes
// when the frame file cannot be parsed.
func (w *Workspace) install(store *catalog.Store) error {
	cfg, found, err := frame.Load(w.paths.Frame)
	if err != nil {
		return fmt.Errorf("load frame %s: %w", w.paths.Frame, err)
	}

	w.setStore(store)
	w.frame = &cfg
	w.frameFound = found
	return nil
}

func (w *Workspace) setStore(store *catalog.Store) {
	w.store = store
	w.engine = generator.NewEngine(store)
}

// Reload rereads the profile document and frame configuration from disk and
// regenerates. Selection and manual edits are kept. A document that cannot be
// read or parsed is left untouched on disk and the loaded state is kept.
func (w *Workspace) Reload() ([]slots.Slot, error) {
	w.mu.Lock()
	store, err := catalog.Read(w.paths.Current)
	if err != nil {
		w.mu.Unlock()
		log.Warn().Err(err).Str("path", w.paths.Current).Msg("Keeping loaded profiles")
		return nil, err
	}
	if err := w.install(store); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	up, ok := w.regenerate()
	w.mu.Unlock()

	if ok {
		w.notify(up)
	}
	return up.Changed, nil
}

// OnFilesUpdated registers a listener called after every regeneration.
func (w *Workspace) OnFilesUpdated(fn Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// OnConfigurationChanged replaces the frame configuration and regenerates.
func (w *Workspace) OnConfigurationChanged(cfg frame.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Orientation == "" {
		cfg.Orientation = frame.Right
	}
	return w.mutate(false, func() error {
		w.frame = &cfg
		return nil
	})
}

// OnProfilesChanged regenerates without changing any input.
func (w *Workspace) OnProfilesChanged() {
	w.mu.Lock()
	up, ok := w.regenerate()
	w.mu.Unlock()
	if ok {
		w.notify(up)
	}
}

// mutate runs fn under the lock, saves the profile document when persist is
// set, then regenerates and notifies listeners. A failed save rolls back the
// catalog and the selection.
func (w *Workspace) mutate(persist bool, fn func() error) error {
	w.mu.Lock()
	var backup *catalog.Store
	hinge, lock := w.hinge, w.lock
	if persist {
		backup = w.store.Clone()
	}
	if err := fn(); err != nil {
		w.mu.Unlock()
		return err
	}
	if persist {
		if err := w.store.Save(w.paths.Current); err != nil {
			w.setStore(backup)
			w.hinge, w.lock = hinge, lock
			w.mu.Unlock()
			return fmt.Errorf("save profiles: %w", err)
		}
	}
	up, ok := w.regenerate()
	w.mu.Unlock()

	if ok {
		w.notify(up)
	}
	return nil
}

// regenerate must be called with the lock held. ok is false when generation
// was skipped for missing inputs.
func (w *Workspace) regenerate() (Update, bool) {
	outputs, ok := w.engine.GenerateAll(w.inputs())
	if !ok {
		return Update{}, false
	}
	changed := w.tracker.RegenerateAll(outputs)
	return Update{Files: w.tracker.Snapshot(), Changed: changed}, true
}

func (w *Workspace) notify(up Update) {
	w.mu.Lock()
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(up)
	}
}

func (w *Workspace) inputs() generator.Inputs {
	in := generator.Inputs{Frame: w.frame}
	if p, ok := w.store.Profile(catalog.Hinge, w.hinge); ok && w.hinge != "" {
		in.HingeProfile = &p
	}
	if p, ok := w.store.Profile(catalog.Lock, w.lock); ok && w.lock != "" {
		in.LockProfile = &p
	}
	return in
}

// PutType adds or replaces a type.
func (w *Workspace) PutType(cat catalog.Category, t catalog.Type) error {
	return w.mutate(true, func() error { return w.store.PutType(cat, t) })
}

// DeleteType removes a type. Profiles using it stop generating.
func (w *Workspace) DeleteType(cat catalog.Category, name string) error {
	return w.mutate(true, func() error { return w.store.DeleteType(cat, name) })
}

// RenameType renames a type in one saved step.
func (w *Workspace) RenameType(cat catalog.Category, oldName, newName string) error {
	return w.mutate(true, func() error { return w.store.RenameType(cat, oldName, newName) })
}

// PutProfile adds or replaces a profile.
func (w *Workspace) PutProfile(cat catalog.Category, p catalog.Profile) error {
	return w.mutate(true, func() error { return w.store.PutProfile(cat, p) })
}

// DeleteProfile removes a profile and clears it from the selection.
func (w *Workspace) DeleteProfile(cat catalog.Category, name string) error {
	return w.mutate(true, func() error {
		if err := w.store.DeleteProfile(cat, name); err != nil {
			return err
		}
		if sel := w.selection(cat); *sel == name {
			*sel = ""
		}
		return nil
	})
}

// RenameProfile renames a profile in one saved step. A selected profile
// stays selected under its new name.
func (w *Workspace) RenameProfile(cat catalog.Category, oldName, newName string) error {
	return w.mutate(true, func() error {
		if err := w.store.RenameProfile(cat, oldName, newName); err != nil {
			return err
		}
		if sel := w.selection(cat); *sel == oldName {
			*sel = newName
		}
		return nil
	})
}

// SetFrameGCode replaces the frame template of one side.
func (w *Workspace) SetFrameGCode(side slots.Side, gcode string) error {
	return w.mutate(true, func() error { return w.store.SetFrameGCode(string(side), gcode) })
}

// SelectProfiles chooses the hinge and lock profiles feeding generation.
// Names need not exist yet; an unknown name simply blocks generation.
func (w *Workspace) SelectProfiles(hinge, lock string) error {
	return w.mutate(false, func() error {
		w.hinge = hinge
		w.lock = lock
		return nil
	})
}

func (w *Workspace) selection(cat catalog.Category) *string {
	if cat == catalog.Lock {
		return &w.lock
	}
	return &w.hinge
}

// UpdateFileContent records an operator edit of a slot and locks it.
func (w *Workspace) UpdateFileContent(s slots.Slot, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tracker.UserEdit(s, text)
}

// ResetFile discards the operator edits of a slot.
func (w *Workspace) ResetFile(s slots.Slot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tracker.ResetToAuto(s)
}

// Export writes the manual content of every slot under dir/cnc.
func (w *Workspace) Export(dir string) (export.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Export(dir, w.tracker)
}

// Save persists the selection and slot state.
func (w *Workspace) Save() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return saveSession(w.paths.Session, session{
		HingeProfile: w.hinge,
		LockProfile:  w.lock,
		Slots:        w.tracker.Snapshot().Named(),
	})
}

// SaveFrame writes the current frame configuration to frame.yaml.
func (w *Workspace) SaveFrame() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := frame.Encode(*w.frame)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(w.paths.Frame, data); err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	w.frameFound = true
	return nil
}

// SaveSnapshot writes a timestamped copy of the profile document.
func (w *Workspace) SaveSnapshot() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.SaveSnapshot(w.paths.SavedDir, w.now())
}

// SaveProject writes the dollar namespace and the slots' manual content to
// projects/<name>/project.json.
func (w *Workspace) SaveProject(name string) (string, error) {
	w.mu.Lock()
	snap := project.Snapshot{
		DollarVariables: frame.Recompute(*w.frame),
		GeneratedGCodes: w.tracker.Snapshot().ManualTexts(),
		Timestamp:       w.now(),
	}
	w.mu.Unlock()
	return project.Save(w.paths.Projects, name, snap)
}

// Paths returns the file locations of the workspace.
func (w *Workspace) Paths() Paths { return w.paths }

// Selection returns the selected hinge and lock profile names.
func (w *Workspace) Selection() (hinge, lock string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hinge, w.lock
}

// Ready reports whether the current inputs allow generation.
func (w *Workspace) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inputs().Ready()
}

// Frame returns a copy of the frame configuration and whether it was read
// from frame.yaml.
func (w *Workspace) Frame() (frame.Configuration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.frame, w.frameFound
}

// Vars returns the dollar namespace of the current frame.
func (w *Workspace) Vars() frame.Vars {
	w.mu.Lock()
	defer w.mu.Unlock()
	return frame.Recompute(*w.frame)
}

// Files returns a copy of all six slots.
func (w *Workspace) Files() slots.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tracker.Snapshot()
}

// Template returns the raw template feeding a slot.
func (w *Workspace) Template(s slots.Slot) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Template(s, w.inputs())
}

// Values returns the substitution set feeding a slot.
func (w *Workspace) Values(s slots.Slot) map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Values(s, w.inputs())
}

// TypeNames lists the types of a category.
func (w *Workspace) TypeNames(cat catalog.Category) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.TypeNames(cat)
}

// Type looks up a type.
func (w *Workspace) Type(cat catalog.Category, name string) (catalog.Type, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Type(cat, name)
}

// ProfileNames lists the profiles of a category.
func (w *Workspace) ProfileNames(cat catalog.Category) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.ProfileNames(cat)
}

// Profile looks up a profile.
func (w *Workspace) Profile(cat catalog.Category, name string) (catalog.Profile, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Profile(cat, name)
}

// DanglingProfiles lists profiles whose type is missing.
func (w *Workspace) DanglingProfiles(cat catalog.Category) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.DanglingProfiles(cat)
}

// FrameGCode returns the per-side frame templates.
func (w *Workspace) FrameGCode() catalog.FrameGCode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.FrameGCode()
}
