package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cnc-frame-wizard/internal/catalog"
	"cnc-frame-wizard/internal/export"
	"cnc-frame-wizard/internal/frame"
	"cnc-frame-wizard/internal/project"
	"cnc-frame-wizard/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	leftFrame  = slots.Slot{Side: slots.Left, Kind: slots.Frame}
	rightFrame = slots.Slot{Side: slots.Right, Kind: slots.Frame}
	leftHinge  = slots.Slot{Side: slots.Left, Kind: slots.Hinge}
	rightLock  = slots.Slot{Side: slots.Right, Kind: slots.Lock}
)

// seed writes a profile document with one type and profile per category.
func seed(t *testing.T, dir string) {
	t.Helper()

	s := catalog.NewStore(catalog.NewDocument())
	require.NoError(t, s.PutType(catalog.Hinge, catalog.Type{Name: "butt", GCode: "H{$hinge1_position} L{L1}"}))
	require.NoError(t, s.PutType(catalog.Lock, catalog.Type{Name: "mortise", GCode: "K{$lock_position} O{$lock_order} D{depth:5}"}))
	require.NoError(t, s.PutProfile(catalog.Hinge, catalog.Profile{Name: "std", Type: "butt", LVariables: catalog.Values{"L1": "12"}}))
	require.NoError(t, s.PutProfile(catalog.Lock, catalog.Profile{Name: "main", Type: "mortise"}))
	require.NoError(t, s.SetFrameGCode("left", "FL{$frame_height}"))
	require.NoError(t, s.SetFrameGCode("right", "FR{$frame_height}"))
	require.NoError(t, s.Save(PathsFor(dir).Current))
}

func openSeeded(t *testing.T, opts ...Option) (*Workspace, string) {
	t.Helper()
	dir := t.TempDir()
	seed(t, dir)
	ws, err := Open(dir, opts...)
	require.NoError(t, err)
	return ws, dir
}

func TestOpenFreshDirectory(t *testing.T) {
	dir := t.TempDir()

	ws, err := Open(dir)
	require.NoError(t, err)

	_, err = os.Stat(PathsFor(dir).Current)
	assert.NoError(t, err, "default profile document is written back")

	cfg, found := ws.Frame()
	assert.False(t, found)
	assert.Equal(t, frame.Default(), cfg)

	assert.False(t, ws.Ready())
	for _, s := range slots.All {
		assert.Empty(t, ws.Files()[s].Manual)
	}
}

func TestOpenRejectsBadFrame(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(PathsFor(dir).Frame, []byte("orientation: up\n"), 0644))

	_, err := Open(dir)
	assert.ErrorIs(t, err, frame.ErrInvalidOrientation)
}

func TestSelectProfilesGenerates(t *testing.T) {
	ws, _ := openSeeded(t)

	var updates []Update
	ws.OnFilesUpdated(func(up Update) { updates = append(updates, up) })

	require.NoError(t, ws.SelectProfiles("std", "main"))
	require.Len(t, updates, 1)
	assert.Len(t, updates[0].Changed, 6)

	files := ws.Files()
	assert.Equal(t, "FL2100", files[leftFrame].Manual)
	assert.Equal(t, "FR2100", files[rightFrame].Manual)
	assert.Equal(t, "H250 L12", files[leftHinge].Manual)
	assert.Equal(t, "K1050 O2 D5", files[rightLock].Manual)
}

func TestUnknownSelectionSkipsGeneration(t *testing.T) {
	ws, _ := openSeeded(t)

	calls := 0
	ws.OnFilesUpdated(func(Update) { calls++ })

	require.NoError(t, ws.SelectProfiles("std", "missing"))
	assert.Zero(t, calls)
	assert.False(t, ws.Ready())
	assert.Empty(t, ws.Files()[leftFrame].Manual)
}

func TestManualEditSurvivesRegeneration(t *testing.T) {
	ws, _ := openSeeded(t)
	require.NoError(t, ws.SelectProfiles("std", "main"))

	require.NoError(t, ws.UpdateFileContent(leftHinge, "G0 HAND"))

	cfg := frame.Default()
	cfg.HingePositions = []float64{300, 1050, 1850}
	require.NoError(t, ws.OnConfigurationChanged(cfg))

	files := ws.Files()
	assert.Equal(t, "G0 HAND", files[leftHinge].Manual)
	assert.Equal(t, "H300 L12", files[leftHinge].Auto)
	assert.True(t, files[leftHinge].IsManual)
	assert.Equal(t, "H300 L12", files[slots.Slot{Side: slots.Right, Kind: slots.Hinge}].Manual)

	require.NoError(t, ws.ResetFile(leftHinge))
	assert.Equal(t, "H300 L12", ws.Files()[leftHinge].Manual)
}

func TestConfigurationValidated(t *testing.T) {
	ws, _ := openSeeded(t)

	cfg := frame.Default()
	cfg.Orientation = "sideways"
	assert.ErrorIs(t, ws.OnConfigurationChanged(cfg), frame.ErrInvalidOrientation)
}

func TestSessionRoundTrip(t *testing.T) {
	ws, dir := openSeeded(t)
	require.NoError(t, ws.SelectProfiles("std", "main"))
	require.NoError(t, ws.UpdateFileContent(rightLock, "K-edited"))
	require.NoError(t, ws.Save())

	reopened, err := Open(dir)
	require.NoError(t, err)

	hinge, lock := reopened.Selection()
	assert.Equal(t, "std", hinge)
	assert.Equal(t, "main", lock)

	files := reopened.Files()
	assert.Equal(t, "K-edited", files[rightLock].Manual)
	assert.True(t, files[rightLock].IsManual)
	assert.Equal(t, "K1050 O2 D5", files[rightLock].Auto)
	assert.Equal(t, "FL2100", files[leftFrame].Manual)
}

func TestCorruptSessionStartsFresh(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)
	require.NoError(t, os.WriteFile(PathsFor(dir).Session, []byte("{not json"), 0644))

	ws, err := Open(dir)
	require.NoError(t, err)
	hinge, lock := ws.Selection()
	assert.Empty(t, hinge)
	assert.Empty(t, lock)
}

func TestProfileRenameAndDeleteTrackSelection(t *testing.T) {
	ws, dir := openSeeded(t)
	require.NoError(t, ws.SelectProfiles("std", "main"))

	require.NoError(t, ws.RenameProfile(catalog.Hinge, "std", "standard"))
	hinge, _ := ws.Selection()
	assert.Equal(t, "standard", hinge)
	assert.True(t, ws.Ready())

	stored, err := catalog.Load(PathsFor(dir).Current)
	require.NoError(t, err)
	_, ok := stored.Profile(catalog.Hinge, "standard")
	assert.True(t, ok, "rename is persisted")
	_, ok = stored.Profile(catalog.Hinge, "std")
	assert.False(t, ok)

	require.NoError(t, ws.DeleteProfile(catalog.Lock, "main"))
	_, lock := ws.Selection()
	assert.Empty(t, lock)
	assert.False(t, ws.Ready())

	assert.ErrorIs(t, ws.DeleteProfile(catalog.Lock, "main"), catalog.ErrNotFound)
}

func TestTypeMutationsRegenerate(t *testing.T) {
	ws, _ := openSeeded(t)
	require.NoError(t, ws.SelectProfiles("std", "main"))

	require.NoError(t, ws.PutType(catalog.Hinge, catalog.Type{Name: "butt", GCode: "NEW {L1}"}))
	assert.Equal(t, "NEW 12", ws.Files()[leftHinge].Manual)

	require.NoError(t, ws.RenameType(catalog.Hinge, "butt", "butt2"))
	assert.Equal(t, []string{"std"}, ws.DanglingProfiles(catalog.Hinge))
	assert.Empty(t, ws.Files()[leftHinge].Manual, "dangling type generates nothing")

	require.NoError(t, ws.SetFrameGCode(slots.Left, "FRAME {$frame_width}"))
	assert.Equal(t, "FRAME 1200", ws.Files()[leftFrame].Manual)
	assert.Equal(t, "FRAME {$frame_width}", ws.FrameGCode().Left)
}

func TestExport(t *testing.T) {
	ws, _ := openSeeded(t, WithSideNames(export.PlainSides))
	require.NoError(t, ws.SelectProfiles("std", "main"))

	out := t.TempDir()
	result, err := ws.Export(out)
	require.NoError(t, err)
	assert.Len(t, result.Files, 6)

	data, err := os.ReadFile(filepath.Join(out, "cnc", "left", "left_frame.txt"))
	require.NoError(t, err)
	assert.Equal(t, "FL2100", string(data))
}

func TestSnapshotsAndProjects(t *testing.T) {
	ts := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	ws, dir := openSeeded(t, WithClock(func() time.Time { return ts }))
	require.NoError(t, ws.SelectProfiles("std", "main"))

	path, err := ws.SaveSnapshot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "profiles", "saved", "2024-06-01_08-30-00.json"), path)

	path, err = ws.SaveProject("door-7")
	require.NoError(t, err)

	snap, err := project.Load(path)
	require.NoError(t, err)
	assert.True(t, ts.Equal(snap.Timestamp))
	assert.Equal(t, "H250 L12", snap.GeneratedGCodes["left_hinge"])
	assert.Equal(t, 2100, snap.DollarVariables["frame_height"])
}

func TestSaveFrameAndReload(t *testing.T) {
	ws, dir := openSeeded(t)
	require.NoError(t, ws.SelectProfiles("std", "main"))

	cfg := frame.Default()
	cfg.Height = 2000
	require.NoError(t, ws.OnConfigurationChanged(cfg))
	require.NoError(t, ws.SaveFrame())

	_, found := ws.Frame()
	assert.True(t, found)

	loaded, found, err := frame.Load(PathsFor(dir).Frame)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2000.0, loaded.Height)

	require.NoError(t, os.WriteFile(PathsFor(dir).Frame, []byte("height: 2200\nhinge_count: 3\nhinge_positions: [250, 1050, 1850]\nhinge_active: [true, true, true]\nlock_position: 1050\nlock_active: true\nexecution_order: [hinge1, lock]\n"), 0644))
	changed, err := ws.Reload()
	require.NoError(t, err)
	assert.Contains(t, changed, leftFrame)
	assert.Equal(t, "FL2200", ws.Files()[leftFrame].Manual)
}

func TestReloadKeepsBrokenDocument(t *testing.T) {
	ws, dir := openSeeded(t)
	require.NoError(t, ws.SelectProfiles("std", "main"))
	before := ws.Files()

	current := PathsFor(dir).Current
	good, err := os.ReadFile(current)
	require.NoError(t, err)
	broken := append(append([]byte(nil), good...), ',')
	require.NoError(t, os.WriteFile(current, broken, 0644))

	changed, err := ws.Reload()
	assert.Error(t, err)
	assert.Empty(t, changed)

	after, err := os.ReadFile(current)
	require.NoError(t, err)
	assert.Equal(t, broken, after, "a bad edit must not be overwritten")
	assert.Equal(t, []string{"butt"}, ws.TypeNames(catalog.Hinge))
	assert.Equal(t, before, ws.Files())

	require.NoError(t, os.WriteFile(current, good, 0644))
	_, err = ws.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"butt"}, ws.TypeNames(catalog.Hinge))
}

func TestFailedSaveRollsBack(t *testing.T) {
	ws, dir := openSeeded(t)
	require.NoError(t, ws.SelectProfiles("std", "main"))

	profilesDir := filepath.Dir(PathsFor(dir).Current)
	require.NoError(t, os.RemoveAll(profilesDir))
	require.NoError(t, os.WriteFile(profilesDir, []byte("not a directory"), 0644))

	err := ws.PutType(catalog.Hinge, catalog.Type{Name: "ghost", GCode: "G0"})
	assert.Error(t, err)
	assert.Equal(t, []string{"butt"}, ws.TypeNames(catalog.Hinge))

	err = ws.DeleteProfile(catalog.Lock, "main")
	assert.Error(t, err)
	_, ok := ws.Profile(catalog.Lock, "main")
	assert.True(t, ok)
	_, lock := ws.Selection()
	assert.Equal(t, "main", lock, "selection is restored with the catalog")
	assert.True(t, ws.Ready())

	require.NoError(t, os.Remove(profilesDir))
	require.NoError(t, ws.PutProfile(catalog.Hinge, catalog.Profile{Name: "wide", Type: "butt"}))

	stored, err := catalog.Load(PathsFor(dir).Current)
	require.NoError(t, err)
	assert.Equal(t, []string{"butt"}, stored.TypeNames(catalog.Hinge), "the rolled back type is never persisted")
	assert.Equal(t, []string{"std", "wide"}, stored.ProfileNames(catalog.Hinge))
}

func TestExportWithoutContentKeepsPreviousExport(t *testing.T) {
	dir := t.TempDir()
	ws, err := Open(dir)
	require.NoError(t, err)

	out := t.TempDir()
	previous := filepath.Join(out, "cnc", "gauche", "left_frame.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(previous), 0755))
	require.NoError(t, os.WriteFile(previous, []byte("G0\r\n"), 0644))

	_, err = ws.Export(out)
	assert.ErrorIs(t, err, export.ErrNothingToExport)
	_, err = os.Stat(previous)
	assert.NoError(t, err)
}
