package token

import "fmt"

// Type classifies a token.
type Type int

const (
	Other Type = iota
	Word
	Whitespace
	Punctuation
)

func (t Type) String() string {
	switch t {
	case Word:
		return "word"
	case Whitespace:
		return "whitespace"
	case Punctuation:
		return "punctuation"
	case Other:
		return "other"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Type) UnmarshalText(b []byte) error {
	switch string(b) {
	case "word":
		*t = Word
	case "whitespace":
		*t = Whitespace
	case "punctuation":
		*t = Punctuation
	case "other":
		*t = Other
	default:
		return fmt.Errorf("unknown token type %q", string(b))
	}
	return nil
}

// Token is one element of a text sequence. Position is assigned when the
// token is appended and never reused.
type Token struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
	Type     Type   `json:"type"`
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%s(%q)", t.Position, t.Type, t.Text)
}

// WithPosition returns a copy of t placed at pos.
func (t Token) WithPosition(pos int) Token {
	t.Position = pos
	return t
}
