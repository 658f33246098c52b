package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree produces
//
//	root
//	 └─0
//	   ├─1
//	   │ └─2
//	   └─3
//	 └─4
func buildTree(t *testing.T) *State {
	t.Helper()
	s := newInit(t)
	add := func() {
		s.Add(0, 0)
		s.AddWord(0)
	}
	add()        // 0 under root
	add()        // 1 under 0
	add()        // 2 under 1
	s.Collapse() // close 2
	s.Collapse() // close 1
	add()        // 3 under 0
	s.Collapse() // close 3
	s.Collapse() // close 0
	add()        // 4 under root
	require.Equal(t, []int{Root, 0, 1, 0, Root}, s.Heads())
	return s
}

func nav(t *testing.T, fn func(int, int) (int, error), index, n int) int {
	t.Helper()
	got, err := fn(index, n)
	require.NoError(t, err)
	return got
}

func TestParent(t *testing.T) {
	s := buildTree(t)
	assert.Equal(t, 2, nav(t, s.Parent, 2, 0))
	assert.Equal(t, 1, nav(t, s.Parent, 2, 1))
	assert.Equal(t, 0, nav(t, s.Parent, 2, 2))
	assert.Equal(t, Root, nav(t, s.Parent, 2, 3))
	assert.Equal(t, NotFound, nav(t, s.Parent, 2, 4))
	assert.Equal(t, NotFound, nav(t, s.Parent, Root, 1))
	assert.Equal(t, Root, nav(t, s.Parent, Root, 0))
}

func TestChildren(t *testing.T) {
	s := buildTree(t)
	assert.Equal(t, 0, nav(t, s.LeftmostChild, Root, 1))
	assert.Equal(t, 4, nav(t, s.RightmostChild, Root, 1))
	assert.Equal(t, 1, nav(t, s.LeftmostChild, 0, 1))
	assert.Equal(t, 3, nav(t, s.RightmostChild, 0, 1))
	assert.Equal(t, 2, nav(t, s.LeftmostChild, 0, 2))
}

func TestChildren_Exhausted(t *testing.T) {
	s := buildTree(t)
	assert.Equal(t, NotFound, nav(t, s.LeftmostChild, 2, 1))
	assert.Equal(t, NotFound, nav(t, s.RightmostChild, Root, 2))
	assert.Equal(t, NotFound, nav(t, s.LeftmostChild, 0, 3))
	assert.Equal(t, 3, nav(t, s.RightmostChild, 3, 0))
}

func TestSiblings(t *testing.T) {
	s := buildTree(t)
	assert.Equal(t, 3, nav(t, s.RightSibling, 1, 1))
	assert.Equal(t, 1, nav(t, s.LeftSibling, 3, 1))
	assert.Equal(t, 4, nav(t, s.RightSibling, 0, 1))
	assert.Equal(t, 0, nav(t, s.LeftSibling, 4, 1))
	assert.Equal(t, 2, nav(t, s.LeftSibling, 2, 0))

	assert.Equal(t, NotFound, nav(t, s.LeftSibling, 1, 1))
	assert.Equal(t, NotFound, nav(t, s.RightSibling, 3, 1))
	assert.Equal(t, NotFound, nav(t, s.RightSibling, 4, 1))
	assert.Equal(t, NotFound, nav(t, s.LeftSibling, 0, 1))
	assert.Equal(t, NotFound, nav(t, s.LeftSibling, Root, 1))
	assert.Equal(t, NotFound, nav(t, s.RightSibling, Root, 2))
}

func TestNavigation_SentinelIsDistinct(t *testing.T) {
	assert.NotEqual(t, Root, NotFound)
	assert.Less(t, NotFound, 0)
}

func TestNavigation_InvalidStart(t *testing.T) {
	s := buildTree(t)
	for name, fn := range map[string]func(int, int) (int, error){
		"parent":         s.Parent,
		"leftmostChild":  s.LeftmostChild,
		"rightmostChild": s.RightmostChild,
		"leftSibling":    s.LeftSibling,
		"rightSibling":   s.RightSibling,
	} {
		_, err := fn(NotFound, 1)
		assert.ErrorIs(t, err, ErrInvalidArgument, name)
		_, err = fn(s.NumTokens(), 1)
		assert.ErrorIs(t, err, ErrInvalidArgument, name)
	}
}
