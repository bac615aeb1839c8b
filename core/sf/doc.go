// Package sf is a generic wrapper around golang.org/x/sync/singleflight.
//
// The sequence read path uses it so that concurrent misses on the same
// position trigger a single backing-store read:
//
//	g := sf.New[Token]()
//	tok, _, err := g.Do("seq-1/42", func() (Token, error) {
//	    return store.ReadAt(ctx, "seq-1", 42)
//	})
package sf
