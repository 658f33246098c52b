// Package search is a reference beam-search driver over a transition
// system. Every successor is a clone of its parent with one action applied;
// parents are never mutated.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/treegen/internal/beam"
	"github.com/danielpatrickdp/treegen/internal/eval"
	"github.com/danielpatrickdp/treegen/internal/features"
	"github.com/danielpatrickdp/treegen/internal/gate"
	"github.com/danielpatrickdp/treegen/internal/oracle"
	"github.com/danielpatrickdp/treegen/internal/trace"
	"github.com/danielpatrickdp/treegen/internal/transition"
)

// #region decoder
// Decoder runs beam search. System and Scorer are required; Features, Gate,
// Eval and Logger are optional.
type Decoder struct {
	System   transition.System
	Scorer   oracle.Scorer
	Features *features.Extractor
	Gate     *gate.Gate
	Eval     *eval.EvalHarness
	Config   Config
	Logger   *slog.Logger
}

// candidate is one successor before ranking.
type candidate struct {
	hyp         *beam.Hypothesis
	parent      int // beam index of the parent
	action      int // -1 for a carried over hypothesis
	delta       float64
	childIndex  int
	parentIndex int
}

func (d *Decoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// complete reports whether h produced a tree and returned to the root. A
// freshly initialized state is final but has not generated anything.
func (d *Decoder) complete(h *beam.Hypothesis) bool {
	return h.IsFinal(d.System) && h.State().NumTokens() > 0
}

// #endregion decoder

// #region decode
// Decode searches for the best tree. numInputTokens sizes the provenance
// arrays of every hypothesis.
func (d *Decoder) Decode(ctx context.Context, numInputTokens int) (*Result, error) {
	start := time.Now()
	res, err := d.decode(ctx, numInputTokens)
	decodeDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		decodeTotal.WithLabelValues("error").Inc()
	case res.Complete:
		decodeTotal.WithLabelValues("complete").Inc()
	default:
		decodeTotal.WithLabelValues("incomplete").Inc()
	}
	return res, err
}

func (d *Decoder) decode(ctx context.Context, numInputTokens int) (*Result, error) {
	if d.System == nil || d.Scorer == nil {
		return nil, errors.New("search: decoder needs a system and a scorer")
	}
	if d.Config.BeamSize < 1 {
		return nil, fmt.Errorf("search: beam size %d must be positive", d.Config.BeamSize)
	}
	log := d.logger()

	root, err := d.initial(numInputTokens)
	if err != nil {
		return nil, err
	}
	log.Info("decode start",
		"system", d.System.Name(),
		"beam_size", d.Config.BeamSize,
		"max_steps", d.Config.MaxSteps,
		"input_tokens", numInputTokens)

	current := []*beam.Hypothesis{root}
	res := &Result{}
	for step := 0; step < d.Config.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.allComplete(current) {
			break
		}

		cands, err := d.expand(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		sortCandidates(cands)
		kept := d.prune(step, cands)
		if len(kept) == 0 {
			return nil, fmt.Errorf("%w at step %d", ErrEmptyBeam, step)
		}
		if len(kept) > d.Config.BeamSize {
			kept = kept[:d.Config.BeamSize]
		}

		next, pointers, actions := d.commit(step, kept)
		res.Backpointers = append(res.Backpointers, pointers)
		res.Actions = append(res.Actions, actions)
		res.Steps++
		stepsTotal.Inc()

		log.Debug("search step",
			"step", step,
			"live", len(current),
			"candidates", len(cands),
			"kept", len(next),
			"best", next[0].Score())
		current = next
	}

	res.Beam = current
	res.Best = current[0]
	for _, h := range current {
		if d.complete(h) {
			res.Best = h
			res.Complete = true
			break
		}
	}

	log.Info("decode finish",
		"steps", res.Steps,
		"complete", res.Complete,
		"score", res.Best.Score(),
		"tokens", res.Best.State().NumTokens())
	return res, nil
}

func (d *Decoder) initial(numInputTokens int) (*beam.Hypothesis, error) {
	st := d.System.NewState()
	st.SetKeepHistory(d.Config.KeepHistory)
	if d.Features != nil {
		d.Features.Preprocess(st)
	}
	h, err := beam.NewHypothesis(st, numInputTokens)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	h.SetBeamIndex(0)
	if d.Config.Trace {
		h.AttachTrace(trace.New(d.System.Name()))
	}
	return h, nil
}

func (d *Decoder) allComplete(hyps []*beam.Hypothesis) bool {
	for _, h := range hyps {
		if !d.complete(h) {
			return false
		}
	}
	return true
}

// #endregion decode

// #region expand
// expand builds the successors of every hypothesis, up to Workers at a time.
func (d *Decoder) expand(ctx context.Context, current []*beam.Hypothesis) ([]candidate, error) {
	perHyp := make([][]candidate, len(current))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, d.Config.Workers))
	for i, h := range current {
		g.Go(func() error {
			cands, err := d.successors(gctx, h)
			if err != nil {
				return err
			}
			perHyp[i] = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []candidate
	for _, cands := range perHyp {
		out = append(out, cands...)
	}
	return out, nil
}

// successors clones h once per legal action. A complete hypothesis is
// carried over as is.
func (d *Decoder) successors(ctx context.Context, h *beam.Hypothesis) ([]candidate, error) {
	if d.complete(h) {
		return []candidate{{hyp: h, parent: h.BeamIndex(), action: -1, childIndex: -1, parentIndex: -1}}, nil
	}

	st := h.State()
	allowed := d.System.AllowedActions(st)
	if len(allowed) == 0 {
		d.logger().Warn("hypothesis has no legal action", "beam_index", h.BeamIndex(), "stack", st.String())
		return nil, nil
	}
	scores, err := d.Scorer.Score(ctx, st, allowed)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", st.String(), err)
	}
	if len(scores) != len(allowed) {
		return nil, fmt.Errorf("scorer returned %d scores for %d actions", len(scores), len(allowed))
	}

	out := make([]candidate, 0, len(allowed))
	for i, a := range allowed {
		child := h.Clone()
		child.InitFromParent(h)
		if err := d.System.Apply(a, child.State()); err != nil {
			return nil, err
		}
		child.SetScore(h.Score() + scores[i])

		c := candidate{hyp: child, parent: h.BeamIndex(), action: a, delta: scores[i], childIndex: -1, parentIndex: -1}
		if d.System.SupportsActionMetadata() {
			c.childIndex = d.System.ChildIndex(child.State(), a)
			c.parentIndex = d.System.ParentIndex(child.State(), a)
		}
		out = append(out, c)
	}
	candidatesTotal.Add(float64(len(out)))
	return out, nil
}

// #endregion expand

// #region rank
// sortCandidates orders by score, highest first; ties go to the lower
// parent beam index, then the lower action id.
func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.hyp.Score() != b.hyp.Score() {
			return a.hyp.Score() > b.hyp.Score()
		}
		if a.parent != b.parent {
			return a.parent < b.parent
		}
		return a.action < b.action
	})
}

// prune drops successors vetoed by the gate or, once complete, rejected by
// eval. Carried over hypotheses already passed both. cands must be sorted.
func (d *Decoder) prune(step int, cands []candidate) []candidate {
	if len(cands) == 0 || (d.Gate == nil && d.Eval == nil) {
		return cands
	}
	log := d.logger()
	best := cands[0].hyp.Score()

	kept := cands[:0]
	gated := 0
	for _, c := range cands {
		if c.action < 0 {
			kept = append(kept, c)
			continue
		}
		if d.Gate != nil {
			if decision := d.Gate.Evaluate(c.hyp, best); decision.Vetoed {
				gated++
				prunedTotal.WithLabelValues(string(decision.VetoSignals[0].Type)).Inc()
				continue
			}
		}
		if d.Eval != nil && d.complete(c.hyp) {
			if result := d.Eval.Run(c.hyp.State()); !result.Passed {
				prunedTotal.WithLabelValues("eval").Inc()
				log.Warn("eval rejected hypothesis", "step", step, "reason", result.Reason)
				continue
			}
		}
		kept = append(kept, c)
	}
	if gated > 0 {
		log.Warn("gate pruned successors", "step", step, "pruned", gated, "kept", len(kept))
	}
	return kept
}

// #endregion rank

// #region commit
// commit assigns beam indices and records provenance and traces for the
// survivors of step.
func (d *Decoder) commit(step int, kept []candidate) ([]*beam.Hypothesis, []int, []int) {
	next := make([]*beam.Hypothesis, len(kept))
	pointers := make([]int, len(kept))
	actions := make([]int, len(kept))

	for i, c := range kept {
		h := c.hyp
		h.SetBeamIndex(i)
		next[i] = h
		pointers[i] = c.parent
		actions[i] = c.action
		if c.action < 0 {
			continue
		}

		if c.childIndex >= 0 {
			parentStep := beam.Unset
			if c.parentIndex >= 0 {
				parentStep = h.StepForToken(c.parentIndex)
			}
			h.SetTokenProvenance(c.childIndex, step, c.parent, parentStep)
		}

		if tr := h.Trace(); tr != nil {
			st := h.State()
			tr.Add(trace.Step{
				Step:            step,
				Action:          c.action,
				ActionString:    d.System.ActionAsString(c.action, st),
				Score:           h.Score(),
				Delta:           c.delta,
				BeamIndex:       i,
				ParentBeamIndex: c.parent,
				ChildIndex:      c.childIndex,
				ParentIndex:     c.parentIndex,
				Stack:           st.String(),
			})
		}
	}
	return next, pointers, actions
}

// #endregion commit
