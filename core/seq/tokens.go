package seq

import (
	"context"
	"strings"
	"sync"

	"github.com/codewandler/tokenstore/core/token"
)

// TokenSequence turns raw text into normalized tokens and keeps them in a
// Sequence.
type TokenSequence struct {
	seq *Sequence[token.Token]

	// mu orders Appends so the normalizer state follows the token order.
	mu   sync.Mutex
	norm token.Normalizer
}

// OpenTokens opens a token sequence. Tokens are stamped with their position
// unless opts.Stamp says otherwise.
func OpenTokens(ctx context.Context, store Store[token.Token], opts Options[token.Token]) (*TokenSequence, error) {
	if opts.Stamp == nil {
		opts.Stamp = func(pos int, t token.Token) token.Token { return t.WithPosition(pos) }
	}
	s, err := Open(ctx, store, opts)
	if err != nil {
		return nil, err
	}

	ts := &TokenSequence{seq: s, norm: *token.NewNormalizer()}
	ts.norm.Compose = opts.Compose

	size, err := s.Size(ctx)
	if err != nil {
		return nil, err
	}
	if size > 0 {
		last, err := s.Get(ctx, size-1)
		if err != nil {
			return nil, err
		}
		ts.norm.LastWasWhitespace = last.Type == token.Whitespace
	}
	return ts, nil
}

func (t *TokenSequence) ID() string                       { return t.seq.ID() }
func (t *TokenSequence) Sequence() *Sequence[token.Token] { return t.seq }

// Append classifies and normalizes raw and appends the resulting tokens.
// Normalizer state advances only over tokens the sequence accepted.
func (t *TokenSequence) Append(ctx context.Context, raw string) ([]token.Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.norm
	toks := next.Tokens(raw)
	if len(toks) == 0 {
		t.norm = next
		return nil, nil
	}

	accepted, err := t.seq.Append(ctx, toks...)
	if err != nil {
		if len(accepted) > 0 {
			t.norm.LastWasWhitespace = accepted[len(accepted)-1].Type == token.Whitespace
		}
		return accepted, err
	}
	t.norm = next
	return accepted, nil
}

// Text concatenates the text of all tokens.
func (t *TokenSequence) Text(ctx context.Context) (string, error) {
	var sb strings.Builder
	err := t.seq.Each(ctx, func(_ int, tok token.Token) error {
		sb.WriteString(tok.Text)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (t *TokenSequence) Get(ctx context.Context, i int) (token.Token, error) {
	return t.seq.Get(ctx, i)
}

func (t *TokenSequence) Size(ctx context.Context) (int, error) { return t.seq.Size(ctx) }

func (t *TokenSequence) Flush(ctx context.Context) (int, error) { return t.seq.Flush(ctx) }

func (t *TokenSequence) SwitchToDirect(ctx context.Context) error {
	return t.seq.SwitchToDirect(ctx)
}

// Start is the first position of the sequence, always 0.
func (t *TokenSequence) Start() int { return 0 }

// End is one past the last position.
func (t *TokenSequence) End(ctx context.Context) (int, error) { return t.seq.Size(ctx) }
