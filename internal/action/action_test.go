package action

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodec_RejectsEmptyVocabularies(t *testing.T) {
	for _, tc := range []struct {
		name            string
		labels, tags, w int
	}{
		{"no labels", 0, 1, 1},
		{"no tags", 1, 0, 1},
		{"no words", 1, 1, 0},
		{"negative words", 1, 1, -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCodec(tc.labels, tc.tags, tc.w)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestCodec_Layout(t *testing.T) {
	c, err := NewCodec(2, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, 1+2*3+4, c.NumActions())
	assert.Equal(t, 0, c.CollapseAction())
	assert.Equal(t, 1, c.AddAction(0, 0))
	assert.Equal(t, 2, c.AddAction(1, 0))
	assert.Equal(t, 3, c.AddAction(0, 1))
	assert.Equal(t, 6, c.AddAction(1, 2))
	assert.Equal(t, 7, c.WordAction(0))
	assert.Equal(t, 10, c.WordAction(3))
}

func TestCodec_RoundTripFromIDs(t *testing.T) {
	for _, sizes := range [][3]int{{1, 1, 1}, {2, 1, 2}, {3, 5, 7}, {7, 2, 1}} {
		c, err := NewCodec(sizes[0], sizes[1], sizes[2])
		require.NoError(t, err)
		for id := 0; id < c.NumActions(); id++ {
			a, err := c.Decode(id)
			require.NoError(t, err)
			back, err := c.Encode(a)
			require.NoError(t, err)
			require.Equal(t, id, back, "sizes=%v action=%+v", sizes, a)
		}
	}
}

func TestCodec_RoundTripFromActions(t *testing.T) {
	c, err := NewCodec(3, 2, 5)
	require.NoError(t, err)

	actions := []Action{NewCollapse()}
	for tag := 0; tag < 2; tag++ {
		for label := 0; label < 3; label++ {
			actions = append(actions, NewAdd(label, tag))
		}
	}
	for w := 0; w < 5; w++ {
		actions = append(actions, NewWord(w))
	}

	for _, a := range actions {
		id, err := c.Encode(a)
		require.NoError(t, err)
		got, err := c.Decode(id)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestCodec_DecodeOutOfRange(t *testing.T) {
	c, err := NewCodec(2, 1, 2)
	require.NoError(t, err)

	for _, id := range []int{-1, c.NumActions(), c.NumActions() + 10} {
		_, err := c.Decode(id)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "id %d", id)
	}
}

func TestCodec_EncodeOutOfDomain(t *testing.T) {
	c, err := NewCodec(2, 1, 2)
	require.NoError(t, err)

	for _, a := range []Action{NewAdd(2, 0), NewAdd(0, 1), NewAdd(-1, 0), NewWord(2), NewWord(-1), {Kind: Kind(9)}} {
		_, err := c.Encode(a)
		assert.ErrorIs(t, err, ErrInvalidArgument, "action %+v", a)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "COLLAPSE", Collapse.String())
	assert.Equal(t, "ADD", Add.String())
	assert.Equal(t, "WORD", Word.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}
