// Package state holds the per-hypothesis record of the generator: a stack of
// open attachment points and the partially built labeled tree, where every
// token gets its head, label and tag when created and its word one step later.
package state

import (
	"strings"

	"github.com/danielpatrickdp/treegen/internal/vocab"
)

const (
	// Root is the position of the synthetic tree root.
	Root = -1
	// NotFound is returned by navigation queries that run out of tree.
	NotFound = -2
	// Unset is the word/tag value of positions that carry none.
	Unset = -1
)

// #region state
// State is the mutable record of one hypothesis. It is not safe for
// concurrent use; fork it with Clone.
type State struct {
	vocab     *vocab.Set
	rootLabel int

	next  int
	stack []int

	head  []int
	label []int
	tag   []int
	word  []int

	keepHistory bool
	history     []int
}

// New returns an empty state reading strings from set. Call Init (usually
// through a transition system) before applying actions.
func New(set *vocab.Set) *State {
	return &State{
		vocab:     set,
		rootLabel: set.RootLabel(),
	}
}

// Init pushes the root onto the empty stack.
func (s *State) Init() {
	if len(s.stack) != 0 || s.next != 0 {
		panic(invalidState("Init", "state already initialized (stack=%d next=%d)", len(s.stack), s.next))
	}
	s.Push(Root)
}

// Vocab returns the shared vocabulary handle.
func (s *State) Vocab() *vocab.Set { return s.vocab }

// #endregion state

// #region stack
// Push places pos on top of the stack.
func (s *State) Push(pos int) {
	s.stack = append(s.stack, pos)
}

// Pop removes and returns the top of the stack.
func (s *State) Pop() int {
	if len(s.stack) == 0 {
		panic(invalidState("Pop", "empty stack (history %v)", s.history))
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return top
}

// Top returns the top of the stack.
func (s *State) Top() int {
	if len(s.stack) == 0 {
		panic(invalidState("Top", "empty stack (history %v)", s.history))
	}
	return s.stack[len(s.stack)-1]
}

// StackAt returns the element k positions below the top, or NotFound.
func (s *State) StackAt(k int) int {
	if k < 0 {
		return NotFound
	}
	i := len(s.stack) - 1 - k
	if i < 0 {
		return NotFound
	}
	return s.stack[i]
}

func (s *State) StackSize() int   { return len(s.stack) }
func (s *State) StackEmpty() bool { return len(s.stack) == 0 }

// Stack returns a copy of the stack, bottom first.
func (s *State) Stack() []int {
	return append([]int(nil), s.stack...)
}

// #endregion stack

// #region mutations
// MissingWord reports whether the newest token still lacks its word.
func (s *State) MissingWord() bool {
	return len(s.head) > len(s.word)
}

// Add creates token Next() as a child of the current top, labels and tags
// it, and pushes it. The new token is missing its word until AddWord.
func (s *State) Add(label, tag int) {
	if len(s.stack) == 0 {
		panic(invalidState("Add", "empty stack"))
	}
	if s.MissingWord() {
		panic(invalidState("Add", "token %d is missing its word", len(s.word)))
	}
	parent := s.stack[len(s.stack)-1]
	s.head = append(s.head, parent)
	s.label = append(s.label, label)
	s.tag = append(s.tag, tag)
	s.stack = append(s.stack, s.next)
	s.next++
}

// AddWord assigns word to the token created by the last Add.
func (s *State) AddWord(word int) {
	if len(s.stack) <= 1 {
		panic(invalidState("AddWord", "stack depth %d", len(s.stack)))
	}
	if !s.MissingWord() {
		panic(invalidState("AddWord", "no token is missing a word"))
	}
	s.word = append(s.word, word)
}

// Collapse pops the top token, closing it to further attachments. The root
// is never popped. This is the only depth floor the state enforces; a
// stricter floor belongs to the transition system (see IsAllowedCollapse).
func (s *State) Collapse() int {
	if s.MissingWord() {
		panic(invalidState("Collapse", "token %d is missing its word", len(s.word)))
	}
	if len(s.stack) <= 1 {
		panic(invalidState("Collapse", "stack depth %d", len(s.stack)))
	}
	return s.Pop()
}

// #endregion mutations

// #region accessors
// Next is the position the next Add will create.
func (s *State) Next() int { return s.next }

// NumTokens is the number of tokens created so far.
func (s *State) NumTokens() int { return len(s.head) }

// RootLabel is the label id of the root, or vocab.NoRootLabel.
func (s *State) RootLabel() int { return s.rootLabel }

// NumLabels counts the label vocabulary plus the root when it is not in it.
func (s *State) NumLabels() int {
	n := s.vocab.Labels.Size()
	if s.rootLabel == vocab.NoRootLabel {
		n++
	}
	return n
}

func (s *State) checkIndex(op string, index int) error {
	if index < Root || index >= len(s.head) {
		return invalidArgument(op, "position %d outside [-1, %d)", index, len(s.head))
	}
	return nil
}

// Head returns the parent of token index; the root is its own head.
func (s *State) Head(index int) (int, error) {
	if err := s.checkIndex("Head", index); err != nil {
		return 0, err
	}
	if index == Root {
		return Root, nil
	}
	return s.head[index], nil
}

// Label returns the label of token index; the root carries RootLabel.
func (s *State) Label(index int) (int, error) {
	if err := s.checkIndex("Label", index); err != nil {
		return 0, err
	}
	if index == Root {
		return s.rootLabel, nil
	}
	return s.label[index], nil
}

// Tag returns the tag of token index, Unset for the root.
func (s *State) Tag(index int) (int, error) {
	if err := s.checkIndex("Tag", index); err != nil {
		return 0, err
	}
	if index == Root {
		return Unset, nil
	}
	return s.tag[index], nil
}

// Word returns the word of token index, Unset for the root and for a token
// still missing its word.
func (s *State) Word(index int) (int, error) {
	if err := s.checkIndex("Word", index); err != nil {
		return 0, err
	}
	if index == Root || index >= len(s.word) {
		return Unset, nil
	}
	return s.word[index], nil
}

// Heads returns a copy of the head array.
func (s *State) Heads() []int { return append([]int(nil), s.head...) }

// Labels returns a copy of the label array.
func (s *State) Labels() []int { return append([]int(nil), s.label...) }

// Tags returns a copy of the tag array.
func (s *State) Tags() []int { return append([]int(nil), s.tag...) }

// Words returns a copy of the word array, which may be one shorter than Heads.
func (s *State) Words() []int { return append([]int(nil), s.word...) }

// #endregion accessors

// #region history
func (s *State) KeepHistory() bool        { return s.keepHistory }
func (s *State) SetKeepHistory(keep bool) { s.keepHistory = keep }
func (s *State) History() []int           { return append([]int(nil), s.history...) }
func (s *State) HistoryLen() int          { return len(s.history) }

// RecordAction appends action to the history when tracking is on.
func (s *State) RecordAction(action int) {
	if s.keepHistory {
		s.history = append(s.history, action)
	}
}

// HistoryAt returns the action applied offset steps ago (0 = last one).
func (s *State) HistoryAt(offset int) (int, bool) {
	i := len(s.history) - 1 - offset
	if offset < 0 || i < 0 {
		return 0, false
	}
	return s.history[i], true
}

// #endregion history

// #region clone
// Clone returns a deep copy sharing only the vocabulary handle.
func (s *State) Clone() *State {
	return &State{
		vocab:       s.vocab,
		rootLabel:   s.rootLabel,
		next:        s.next,
		stack:       append([]int(nil), s.stack...),
		head:        append([]int(nil), s.head...),
		label:       append([]int(nil), s.label...),
		tag:         append([]int(nil), s.tag...),
		word:        append([]int(nil), s.word...),
		keepHistory: s.keepHistory,
		history:     append([]int(nil), s.history...),
	}
}

// #endregion clone

// #region strings
// LabelAsString returns the label string, the root name for RootLabel, or ""
// for ids outside the table.
func (s *State) LabelAsString(label int) string {
	if label == s.rootLabel {
		return s.vocab.RootName()
	}
	return s.vocab.Labels.GetTerm(label)
}

// TagAsString returns the tag string, or "" for ids outside the table.
func (s *State) TagAsString(tag int) string {
	return s.vocab.Tags.GetTerm(tag)
}

// WordAsString returns the word string, or "" for ids outside the table.
func (s *State) WordAsString(word int) string {
	return s.vocab.Words.GetTerm(word)
}

// String renders the stack bottom to top, e.g. "[ROOT the dog *]". A token
// still missing its word prints as "*".
func (s *State) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, pos := range s.stack {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch {
		case pos == Root:
			b.WriteString(s.vocab.RootName())
		case pos >= len(s.word):
			b.WriteByte('*')
		default:
			b.WriteString(s.WordAsString(s.word[pos]))
		}
	}
	b.WriteByte(']')
	return b.String()
}

// #endregion strings
