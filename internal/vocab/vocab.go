// Package vocab holds the read-only term tables that map label, tag and word
// ids to strings and back. Tables are built once and shared by every
// hypothesis of a search.
package vocab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultRootLabel is the name looked up in the label table for the root.
const DefaultRootLabel = "ROOT"

// NoRootLabel is the root label id used when the root name is not in the
// label table.
const NoRootLabel = -1

// #region vocabulary
// Vocabulary is a dense id <-> term table.
type Vocabulary interface {
	Size() int
	LookupIndex(term string, def int) int
	GetTerm(index int) string
}

// #endregion vocabulary

// #region term-map
// TermMap is an immutable Vocabulary backed by a slice and an index map.
type TermMap struct {
	terms []string
	freqs []int64
	index map[string]int
}

// NewTermMap builds a map with ids assigned in argument order. Duplicate
// terms keep their first id.
func NewTermMap(terms ...string) *TermMap {
	m := &TermMap{
		terms: make([]string, 0, len(terms)),
		freqs: make([]int64, 0, len(terms)),
		index: make(map[string]int, len(terms)),
	}
	for _, t := range terms {
		m.add(t, 0)
	}
	return m
}

func (m *TermMap) add(term string, freq int64) {
	if _, ok := m.index[term]; ok {
		return
	}
	m.index[term] = len(m.terms)
	m.terms = append(m.terms, term)
	m.freqs = append(m.freqs, freq)
}

func (m *TermMap) Size() int { return len(m.terms) }

// LookupIndex returns the id of term, or def when absent.
func (m *TermMap) LookupIndex(term string, def int) int {
	if i, ok := m.index[term]; ok {
		return i
	}
	return def
}

// GetTerm returns the term for index, or "" outside the table.
func (m *TermMap) GetTerm(index int) string {
	if index < 0 || index >= len(m.terms) {
		return ""
	}
	return m.terms[index]
}

// Frequency returns the corpus frequency recorded for index, 0 if unknown.
func (m *TermMap) Frequency(index int) int64 {
	if index < 0 || index >= len(m.freqs) {
		return 0
	}
	return m.freqs[index]
}

// Terms returns a copy of the terms in id order.
func (m *TermMap) Terms() []string {
	out := make([]string, len(m.terms))
	copy(out, m.terms)
	return out
}

// #endregion term-map

// #region loader
// ReadTermMap parses the term-frequency text format: a first line holding the
// number of entries, then one "term frequency" line per entry. The term may
// itself contain spaces; the frequency is the last field.
func ReadTermMap(r io.Reader) (*TermMap, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("read header: empty input")
	}
	total, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || total < 0 {
		return nil, fmt.Errorf("parse header %q: invalid term count", sc.Text())
	}

	// The header is untrusted until the entries are counted.
	hint := min(total, 1<<16)
	m := &TermMap{
		terms: make([]string, 0, hint),
		freqs: make([]int64, 0, hint),
		index: make(map[string]int, hint),
	}
	line := 1
	for len(m.terms) < total && sc.Scan() {
		line++
		text := sc.Text()
		cut := strings.LastIndexByte(text, ' ')
		if cut <= 0 {
			return nil, fmt.Errorf("line %d: expected \"term frequency\", got %q", line, text)
		}
		freq, err := strconv.ParseInt(text[cut+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse frequency: %w", line, err)
		}
		term := text[:cut]
		if _, dup := m.index[term]; dup {
			return nil, fmt.Errorf("line %d: duplicate term %q", line, term)
		}
		m.add(term, freq)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read terms: %w", err)
	}
	if len(m.terms) != total {
		return nil, fmt.Errorf("header declares %d terms, found %d", total, len(m.terms))
	}
	return m, nil
}

// LoadTermMap reads a term-frequency file from disk.
func LoadTermMap(path string) (*TermMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open term map %s: %w", path, err)
	}
	defer f.Close()
	m, err := ReadTermMap(f)
	if err != nil {
		return nil, fmt.Errorf("term map %s: %w", path, err)
	}
	return m, nil
}

// WriteTermMap writes m in the format read by ReadTermMap.
func WriteTermMap(w io.Writer, m *TermMap) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d\n", m.Size()); err != nil {
		return err
	}
	for i, t := range m.terms {
		if _, err := fmt.Fprintf(bw, "%s %d\n", t, m.freqs[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// #endregion loader

// #region set
// Set bundles the three tables a generator needs. A Set is never copied per
// hypothesis; pass the pointer.
type Set struct {
	Labels        Vocabulary
	Tags          Vocabulary
	Words         Vocabulary
	RootLabelName string
}

// NewSet returns a Set using DefaultRootLabel.
func NewSet(labels, tags, words Vocabulary) *Set {
	return &Set{Labels: labels, Tags: tags, Words: words, RootLabelName: DefaultRootLabel}
}

// LoadSet reads the three tables from term-frequency files.
func LoadSet(labelPath, tagPath, wordPath, rootLabel string) (*Set, error) {
	labels, err := LoadTermMap(labelPath)
	if err != nil {
		return nil, err
	}
	tags, err := LoadTermMap(tagPath)
	if err != nil {
		return nil, err
	}
	words, err := LoadTermMap(wordPath)
	if err != nil {
		return nil, err
	}
	s := NewSet(labels, tags, words)
	if rootLabel != "" {
		s.RootLabelName = rootLabel
	}
	return s, nil
}

// RootName returns the configured root label string.
func (s *Set) RootName() string {
	if s.RootLabelName == "" {
		return DefaultRootLabel
	}
	return s.RootLabelName
}

// RootLabel returns the label id of the root name, or NoRootLabel.
func (s *Set) RootLabel() int {
	return s.Labels.LookupIndex(s.RootName(), NoRootLabel)
}

// #endregion set
