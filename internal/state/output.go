package state

// #region output
// Token is one materialized output token. Head is Root for tokens attached
// to the root.
type Token struct {
	Word  string `json:"word"`
	Tag   string `json:"tag"`
	Label string `json:"label"`
	Head  int    `json:"head"`
}

// CreateOutput materializes the generated tokens in position order. With
// rewriteRootLabels set, tokens attached to the root get the root label
// name. A token still missing its word gets an empty Word.
func (s *State) CreateOutput(rewriteRootLabels bool) []Token {
	out := make([]Token, len(s.head))
	for i := range s.head {
		t := Token{
			Label: s.LabelAsString(s.label[i]),
			Tag:   s.TagAsString(s.tag[i]),
			Head:  s.head[i],
		}
		if i < len(s.word) {
			t.Word = s.WordAsString(s.word[i])
		}
		if s.head[i] == Root && rewriteRootLabels {
			t.Label = s.LabelAsString(s.rootLabel)
		}
		out[i] = t
	}
	return out
}

// OutputWords returns the surface strings of tokens, skipping missing words.
func OutputWords(tokens []Token) []string {
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Word != "" {
			words = append(words, t.Word)
		}
	}
	return words
}

// #endregion output
