package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leftLock = Slot{Side: Left, Kind: Lock}

func seeded(t *testing.T) *Tracker {
	t.Helper()
	tr := NewTracker()
	require.NoError(t, tr.RegenerateAuto(leftLock, "A1"))
	return tr
}

func TestRegenerateAutoPropagates(t *testing.T) {
	tr := seeded(t)
	assert.Equal(t, "A1", tr.ManualContent(leftLock))

	require.NoError(t, tr.RegenerateAuto(leftLock, "A2"))
	assert.Equal(t, "A2", tr.AutoContent(leftLock))
	assert.Equal(t, "A2", tr.ManualContent(leftLock))
	assert.False(t, tr.IsModified(leftLock))
}

func TestUserEditSurvivesRegeneration(t *testing.T) {
	tr := seeded(t)

	require.NoError(t, tr.UserEdit(leftLock, "X"))
	require.NoError(t, tr.RegenerateAuto(leftLock, "A2"))

	assert.Equal(t, "A2", tr.AutoContent(leftLock))
	assert.Equal(t, "X", tr.ManualContent(leftLock))
	assert.True(t, tr.IsModified(leftLock))

	t.Run("reset restores auto content", func(t *testing.T) {
		require.NoError(t, tr.ResetToAuto(leftLock))
		assert.Equal(t, "A2", tr.ManualContent(leftLock))
		assert.False(t, tr.IsModified(leftLock))
	})
}

func TestUserEditEqualToAutoStillLocks(t *testing.T) {
	tr := seeded(t)

	require.NoError(t, tr.UserEdit(leftLock, "A1"))
	assert.True(t, tr.IsModified(leftLock))

	// Auto content cycling back to a previous value must not unlock the slot.
	require.NoError(t, tr.RegenerateAuto(leftLock, "A2"))
	require.NoError(t, tr.RegenerateAuto(leftLock, "A1"))
	require.NoError(t, tr.RegenerateAuto(leftLock, "A3"))
	assert.Equal(t, "A1", tr.ManualContent(leftLock))
}

func TestRegenerateAll(t *testing.T) {
	tr := NewTracker()
	rightFrame := Slot{Side: Right, Kind: Frame}
	require.NoError(t, tr.UserEdit(rightFrame, "hand"))

	outputs := make(map[Slot]string)
	for _, s := range All {
		outputs[s] = "gen " + s.String()
	}
	outputs[Slot{Side: Left, Kind: Hinge}] = ""

	changed := tr.RegenerateAll(outputs)
	assert.Len(t, changed, 4)
	assert.NotContains(t, changed, rightFrame)
	assert.Equal(t, "hand", tr.ManualContent(rightFrame))
	assert.Equal(t, "gen right_frame", tr.AutoContent(rightFrame))

	assert.Empty(t, tr.RegenerateAll(outputs))
}

func TestUnknownSlot(t *testing.T) {
	tr := NewTracker()
	bogus := Slot{Side: "top", Kind: Frame}

	assert.ErrorIs(t, tr.RegenerateAuto(bogus, "x"), ErrUnknownSlot)
	assert.ErrorIs(t, tr.UserEdit(bogus, "x"), ErrUnknownSlot)
	assert.ErrorIs(t, tr.ResetToAuto(bogus), ErrUnknownSlot)
	assert.Equal(t, "", tr.ManualContent(bogus))
	assert.False(t, tr.IsModified(bogus))
}

func TestSnapshotRoundTrip(t *testing.T) {
	tr := seeded(t)
	require.NoError(t, tr.UserEdit(Slot{Side: Right, Kind: Hinge}, "edited"))

	named := tr.Snapshot().Named()
	assert.Len(t, named, 6)
	assert.Equal(t, Content{Auto: "A1", Manual: "A1"}, named["left_lock"])

	restored := NewTracker()
	named["bogus_slot"] = Content{Manual: "ignored"}
	restored.Restore(FromNamed(named))
	assert.Equal(t, tr.Snapshot(), restored.Snapshot())
	assert.True(t, restored.IsModified(Slot{Side: Right, Kind: Hinge}))

	texts := restored.Snapshot().ManualTexts()
	assert.Equal(t, "edited", texts["right_hinge"])
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		in       string
		expected Slot
		wantErr  bool
	}{
		{in: "left_frame", expected: Slot{Side: Left, Kind: Frame}},
		{in: "Right-Hinge", expected: Slot{Side: Right, Kind: Hinge}},
		{in: "left/lock", expected: Slot{Side: Left, Kind: Lock}},
		{in: "right lock", expected: Slot{Side: Right, Kind: Lock}},
		{in: "left", wantErr: true},
		{in: "up_frame", wantErr: true},
		{in: "left_door", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSlot(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownSlot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAllSlots(t *testing.T) {
	require.Len(t, All, 6)
	assert.Equal(t, "left_frame", All[0].String())
	assert.Equal(t, "right_hinge.txt", All[5].FileName())
}
