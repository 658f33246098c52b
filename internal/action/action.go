// Package action encodes generator actions as dense non-negative integers.
//
// Given L labels, T tags and W words the action space is laid out as
//
//	0                      COLLAPSE
//	1 .. L*T               ADD(label, tag), a = 1 + label + L*tag
//	L*T+1 .. L*T+W         WORD(word),      a = 1 + L*T + word
package action

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for action ids or structured actions outside
// the codec's domain.
var ErrInvalidArgument = errors.New("invalid argument")

// #region kind
// Kind identifies one of the three action families.
type Kind int

const (
	Collapse Kind = iota
	Add
	Word
)

// NumKinds is the number of action families.
const NumKinds = 3

func (k Kind) String() string {
	switch k {
	case Collapse:
		return "COLLAPSE"
	case Add:
		return "ADD"
	case Word:
		return "WORD"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// #endregion kind

// #region action
// Action is the structured form of an encoded action. Label and Tag are only
// meaningful for Add, Word only for Word; unused fields are -1.
type Action struct {
	Kind  Kind
	Label int
	Tag   int
	Word  int
}

// NewCollapse returns the COLLAPSE action.
func NewCollapse() Action {
	return Action{Kind: Collapse, Label: -1, Tag: -1, Word: -1}
}

// NewAdd returns ADD(label, tag).
func NewAdd(label, tag int) Action {
	return Action{Kind: Add, Label: label, Tag: tag, Word: -1}
}

// NewWord returns WORD(word).
func NewWord(word int) Action {
	return Action{Kind: Word, Label: -1, Tag: -1, Word: word}
}

// #endregion action

// #region codec
// Codec maps between Action values and integer ids for fixed vocabulary sizes.
type Codec struct {
	numLabels int
	numTags   int
	numWords  int
}

// NewCodec builds a codec. All three vocabularies must be non-empty: without
// words no token could ever be completed.
func NewCodec(numLabels, numTags, numWords int) (Codec, error) {
	if numLabels < 1 || numTags < 1 || numWords < 1 {
		return Codec{}, fmt.Errorf("%w: vocabulary sizes labels=%d tags=%d words=%d",
			ErrInvalidArgument, numLabels, numTags, numWords)
	}
	return Codec{numLabels: numLabels, numTags: numTags, numWords: numWords}, nil
}

func (c Codec) NumLabels() int { return c.numLabels }
func (c Codec) NumTags() int   { return c.numTags }
func (c Codec) NumWords() int  { return c.numWords }

// NumActions returns 1 + L*T + W.
func (c Codec) NumActions() int {
	return 1 + c.addSpan() + c.numWords
}

func (c Codec) addSpan() int {
	return c.numLabels * c.numTags
}

// CollapseAction returns the id of COLLAPSE.
func (c Codec) CollapseAction() int { return 0 }

// AddAction returns the id of ADD(label, tag) without range checks.
func (c Codec) AddAction(label, tag int) int {
	return 1 + label + c.numLabels*tag
}

// WordAction returns the id of WORD(word) without range checks.
func (c Codec) WordAction(word int) int {
	return 1 + c.addSpan() + word
}

// Encode validates a and returns its id.
func (c Codec) Encode(a Action) (int, error) {
	switch a.Kind {
	case Collapse:
		return c.CollapseAction(), nil
	case Add:
		if a.Label < 0 || a.Label >= c.numLabels || a.Tag < 0 || a.Tag >= c.numTags {
			return 0, fmt.Errorf("%w: ADD(%d, %d) outside %d labels x %d tags",
				ErrInvalidArgument, a.Label, a.Tag, c.numLabels, c.numTags)
		}
		return c.AddAction(a.Label, a.Tag), nil
	case Word:
		if a.Word < 0 || a.Word >= c.numWords {
			return 0, fmt.Errorf("%w: WORD(%d) outside %d words", ErrInvalidArgument, a.Word, c.numWords)
		}
		return c.WordAction(a.Word), nil
	}
	return 0, fmt.Errorf("%w: unknown action kind %d", ErrInvalidArgument, int(a.Kind))
}

// KindOf returns the family of an action id.
func (c Codec) KindOf(id int) (Kind, error) {
	if id < 0 || id >= c.NumActions() {
		return 0, fmt.Errorf("%w: action %d outside [0, %d)", ErrInvalidArgument, id, c.NumActions())
	}
	switch {
	case id == 0:
		return Collapse, nil
	case id <= c.addSpan():
		return Add, nil
	default:
		return Word, nil
	}
}

// Decode returns the structured form of id.
func (c Codec) Decode(id int) (Action, error) {
	kind, err := c.KindOf(id)
	if err != nil {
		return Action{}, err
	}
	switch kind {
	case Add:
		return NewAdd((id-1)%c.numLabels, (id-1)/c.numLabels), nil
	case Word:
		return NewWord(id - c.addSpan() - 1), nil
	}
	return NewCollapse(), nil
}

// #endregion codec
