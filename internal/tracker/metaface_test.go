package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaDominantTieGoesToLowestID(t *testing.T) {
	a := newMetaFaceArena(3)
	first := a.mint(0, 0)
	second := a.mint(0, 1)
	a.claim(first, 1, 0)
	a.claim(second, 1, 1)

	a.hit(second)
	a.hit(first)

	mf, ok := a.dominant()
	require.True(t, ok)
	assert.Equal(t, first, mf.ID)
	assert.Equal(t, []int{0, 0, Absent}, mf.Faces)
}

func TestArenaWithoutHitsHasNoDominant(t *testing.T) {
	a := newMetaFaceArena(2)
	a.mint(0, 0)

	_, ok := a.dominant()
	assert.False(t, ok)
}

func TestArenaSnapshotIsDetached(t *testing.T) {
	a := newMetaFaceArena(2)
	id := a.mint(0, 0)
	snap := a.snapshot()

	a.claim(id, 1, 3)
	assert.Equal(t, []int{0, Absent}, snap[0].Faces)

	pos, ok := snap[0].FirstFrame()
	assert.True(t, ok)
	assert.Equal(t, 0, pos)
}
