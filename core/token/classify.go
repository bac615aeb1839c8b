package token

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

// Fragment is a classified slice of input text.
type Fragment struct {
	Text string
	Type Type
}

// Classify splits text into fragments. Fragment texts are substrings of
// text, byte for byte.
//
// A maximal run of whitespace is one Whitespace fragment and a maximal run
// of word runes is one Word fragment. Every punctuation rune is its own
// Punctuation fragment and every symbol rune its own Other fragment.
// Anything else (control and format characters, private use, invalid
// UTF-8) is skipped.
//
// The returned sequence can be ranged over any number of times.
func Classify(text string) iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		for i := 0; i < len(text); {
			r, size := utf8.DecodeRuneInString(text[i:])

			var (
				typ   Type
				end   = i + size
				known = true
			)
			switch {
			case r == utf8.RuneError && size <= 1:
				known = false
			case unicode.IsSpace(r):
				typ = Whitespace
				end = scan(text, end, unicode.IsSpace)
			case isWordRune(r):
				typ = Word
				end = scan(text, end, isWordRune)
			case unicode.IsPunct(r):
				typ = Punctuation
			case unicode.IsSymbol(r):
				typ = Other
			default:
				known = false
			}

			if known && !yield(Fragment{Text: text[i:end], Type: typ}) {
				return
			}
			i = end
		}
	}
}

// isWordRune accepts letters, digits, combining marks and connector punctuation. Marks keep
// accented and pointed scripts (Greek, Hebrew) inside one word.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || unicode.Is(unicode.Pc, r)
}

func scan(text string, i int, accept func(rune) bool) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		if !accept(r) {
			return i
		}
		i += size
	}
	return i
}
