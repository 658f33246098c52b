package beam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/treegen/internal/state"
	"github.com/danielpatrickdp/treegen/internal/trace"
	"github.com/danielpatrickdp/treegen/internal/transition"
	"github.com/danielpatrickdp/treegen/internal/vocab"
)

func newSystem(t *testing.T) transition.System {
	t.Helper()
	sys, err := transition.New(transition.NameGenerator, vocab.NewSet(
		vocab.NewTermMap("A", "B"),
		vocab.NewTermMap("X"),
		vocab.NewTermMap("w0", "w1"),
	))
	require.NoError(t, err)
	return sys
}

func newHypothesis(t *testing.T, sys transition.System, tokens int) *Hypothesis {
	t.Helper()
	h, err := NewHypothesis(sys.NewState(), tokens)
	require.NoError(t, err)
	return h
}

func TestNewHypothesis_Defaults(t *testing.T) {
	sys := newSystem(t)
	h := newHypothesis(t, sys, 3)

	assert.Equal(t, 0.0, h.Score())
	assert.Equal(t, Unset, h.BeamIndex())
	assert.Equal(t, 0, h.ParentBeamIndex())
	assert.Equal(t, 3, h.NumInputTokens())
	for tok := 0; tok < 3; tok++ {
		assert.Equal(t, Unset, h.StepForToken(tok))
		assert.Equal(t, Unset, h.ParentForToken(tok))
		assert.Equal(t, Unset, h.ParentStepForToken(tok))
	}
	assert.Nil(t, h.Trace())
}

func TestNewHypothesis_BadTokenCount(t *testing.T) {
	sys := newSystem(t)
	_, err := NewHypothesis(sys.NewState(), -1)
	assert.ErrorIs(t, err, ErrTokenCount)
	_, err = NewHypothesis(nil, 1)
	assert.ErrorIs(t, err, ErrTokenCount)
}

func TestInitFromParent(t *testing.T) {
	sys := newSystem(t)
	parent := newHypothesis(t, sys, 0)
	parent.SetScore(-1.25)
	parent.SetBeamIndex(4)

	child := newHypothesis(t, sys, 0)
	child.SetBeamIndex(7)
	child.InitFromParent(parent)

	assert.Equal(t, -1.25, child.Score())
	assert.Equal(t, 4, child.ParentBeamIndex())
	assert.Equal(t, 7, child.BeamIndex())
}

func TestClone_Independence(t *testing.T) {
	sys := newSystem(t)
	c := sys.Codec()
	h := newHypothesis(t, sys, 2)
	h.SetScore(2.5)
	h.SetBeamIndex(1)
	h.SetTokenProvenance(0, 3, 1, 2)
	tr := trace.New("generator")
	tr.Add(trace.Step{Step: 0, Action: 1})
	h.AttachTrace(tr)
	require.NoError(t, sys.Apply(c.AddAction(0, 0), h.State()))

	clone := h.Clone()
	assert.Equal(t, 2.5, clone.Score())
	assert.Equal(t, 1, clone.BeamIndex())
	assert.Equal(t, h.ParentBeamIndex(), clone.ParentBeamIndex())
	assert.Equal(t, 3, clone.StepForToken(0))
	assert.Equal(t, 1, clone.ParentForToken(0))
	assert.Equal(t, 2, clone.ParentStepForToken(0))
	require.NotNil(t, clone.Trace())
	assert.NotSame(t, h.Trace(), clone.Trace())
	assert.NotSame(t, h.State(), clone.State())

	require.NoError(t, sys.Apply(c.WordAction(1), clone.State()))
	clone.SetTokenProvenance(1, 9, 9, 9)
	clone.Trace().Add(trace.Step{Step: 1})
	clone.SetScore(0)

	assert.True(t, h.State().MissingWord())
	assert.Equal(t, Unset, h.StepForToken(1))
	assert.Equal(t, 1, h.Trace().Len())
	assert.Equal(t, 2.5, h.Score())
}

func TestClone_WithoutTrace(t *testing.T) {
	sys := newSystem(t)
	h := newHypothesis(t, sys, 0)
	assert.Nil(t, h.Clone().Trace())
}

func TestSetTokenProvenance_OutOfRange(t *testing.T) {
	sys := newSystem(t)
	h := newHypothesis(t, sys, 1)
	assert.False(t, h.SetTokenProvenance(1, 0, 0, 0))
	assert.False(t, h.SetTokenProvenance(-1, 0, 0, 0))
	assert.True(t, h.SetTokenProvenance(0, 0, 0, 0))
	assert.Equal(t, Unset, h.StepForToken(5))
}

func TestIsFinal(t *testing.T) {
	sys := newSystem(t)
	c := sys.Codec()
	h := newHypothesis(t, sys, 0)
	assert.True(t, h.IsFinal(sys))

	require.NoError(t, sys.Apply(c.AddAction(0, 0), h.State()))
	assert.False(t, h.IsFinal(sys))
	require.NoError(t, sys.Apply(c.WordAction(0), h.State()))
	require.NoError(t, sys.Apply(c.CollapseAction(), h.State()))
	assert.True(t, h.IsFinal(sys))
	assert.Equal(t, []int{state.Root}, h.State().Stack())
}
