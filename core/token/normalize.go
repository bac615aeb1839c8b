package token

import "golang.org/x/text/unicode/norm"

// Space is the canonical whitespace token text.
const Space = " "

// Normalizer collapses whitespace across a stream of fragments. Whitespace
// directly after whitespace, or at the very start, is dropped; any other
// whitespace run becomes a single Space.
//
// LastWasWhitespace starts out true for a fresh sequence, which is what
// suppresses leading whitespace.
//
// With Compose set, Tokens brings its input into NFC before classifying, so
// precomposed and decomposed spellings yield the same tokens. Token text is
// then no longer a substring of the raw input.
type Normalizer struct {
	LastWasWhitespace bool
	Compose           bool
}

func NewNormalizer() *Normalizer {
	return &Normalizer{LastWasWhitespace: true}
}

// Accept returns the token text and type to emit for f, or ok=false if f
// is absorbed.
func (n *Normalizer) Accept(f Fragment) (text string, typ Type, ok bool) {
	if f.Type == Whitespace {
		if n.LastWasWhitespace {
			return "", Whitespace, false
		}
		n.LastWasWhitespace = true
		return Space, Whitespace, true
	}
	n.LastWasWhitespace = false
	return f.Text, f.Type, true
}

// Tokens classifies and normalizes text into position-less tokens.
func (n *Normalizer) Tokens(text string) []Token {
	if n.Compose {
		text = norm.NFC.String(text)
	}
	var out []Token
	for f := range Classify(text) {
		if s, typ, ok := n.Accept(f); ok {
			out = append(out, Token{Text: s, Type: typ})
		}
	}
	return out
}
