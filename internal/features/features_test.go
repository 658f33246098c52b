package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/vocab"
)

func sampleState(t *testing.T) *state.State {
	t.Helper()
	st := state.New(vocab.NewSet(
		vocab.NewTermMap("A", "B"),
		vocab.NewTermMap("X", "Y"),
		vocab.NewTermMap("w0", "w1", "w2"),
	))
	st.Init()
	st.SetKeepHistory(true)
	// root -> 0(B,Y,w2) -> 1(A,X,w1), 2(A,Y,missing)
	st.Add(1, 1)
	st.RecordAction(4)
	st.AddWord(2)
	st.RecordAction(7)
	st.Add(0, 0)
	st.AddWord(1)
	st.Collapse()
	st.Add(0, 1)
	return st
}

func extract(t *testing.T, fml string, st *state.State) []int {
	t.Helper()
	e, err := Parse(fml)
	require.NoError(t, err)
	values, err := e.Extract(st)
	require.NoError(t, err)
	ids := make([]int, len(values))
	for i, v := range values {
		ids[i] = v.ID
	}
	return ids
}

func TestParse_Errors(t *testing.T) {
	for _, fml := range []string{
		"word",
		"stack.bogus",
		"head.word",
		"stack.stack.word",
		"stack.head",
		"stack(x).word",
		"stack(1.word",
		"stack.last-action",
	} {
		_, err := Parse(fml)
		assert.Error(t, err, fml)
	}
}

func TestParse_Specs(t *testing.T) {
	e, err := Parse("  stack.word\tstack(1).label last-action ")
	require.NoError(t, err)
	assert.Equal(t, []string{"stack.word", "stack(1).label", "last-action"}, e.Specs())
	assert.True(t, e.NeedsHistory())
}

func TestExtract_StackFeatures(t *testing.T) {
	st := sampleState(t)
	// stack is [root, 0, 2]; token 2 is missing its word.
	ids := extract(t, "stack.focus stack(1).focus stack(2).focus stack(3).focus", st)
	assert.Equal(t, []int{2, 0, -1, -2}, ids)

	ids = extract(t, "stack.word stack(1).word stack(2).word stack(3).word", st)
	assert.Equal(t, []int{4, 2, 3, 4}, ids)

	ids = extract(t, "stack.label stack(1).label stack(2).label", st)
	assert.Equal(t, []int{0, 1, 2}, ids)

	ids = extract(t, "stack.tag stack(2).tag", st)
	assert.Equal(t, []int{1, 2}, ids)
}

func TestExtract_TreeLocators(t *testing.T) {
	st := sampleState(t)
	ids := extract(t, "stack(1).child(-1).focus stack(1).child.focus stack.head.focus stack.head(2).focus stack.head(3).focus", st)
	assert.Equal(t, []int{1, 2, 0, -1, -2}, ids)

	ids = extract(t, "stack.sibling(-1).word stack.sibling(1).focus stack(3).head.word", st)
	assert.Equal(t, []int{1, -2, 4}, ids)
}

func TestExtract_StateFunctions(t *testing.T) {
	st := sampleState(t)
	ids := extract(t, "last-action last-action(1) last-action(2) constant(7) constant", st)
	assert.Equal(t, []int{8, 5, 0, 7, 0}, ids)
}

func TestPreprocess_EnablesHistory(t *testing.T) {
	st := state.New(vocab.NewSet(vocab.NewTermMap("A"), vocab.NewTermMap("X"), vocab.NewTermMap("w")))
	e, err := Parse("stack.word")
	require.NoError(t, err)
	e.Preprocess(st)
	assert.False(t, st.KeepHistory())

	e, err = Parse("last-action(2)")
	require.NoError(t, err)
	e.Preprocess(st)
	assert.True(t, st.KeepHistory())
}
