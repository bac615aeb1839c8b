// Package seq implements buffered, append-only sequences backed by a
// pluggable Store.
//
// New elements collect in a tail buffer and are written to the store in
// batches once the buffer reaches a threshold. Reads go to the tail buffer
// for unflushed positions and to a lookaside cache, then the store, for
// everything else. Size is always stored count plus buffered count.
//
//	store := seq.NewInMemoryStore[token.Token]()
//	ts, _ := seq.OpenTokens(ctx, store, seq.Options[token.Token]{ID: "doc-1"})
//	ts.Append(ctx, "Hello,   world")
//	text, _ := ts.Text(ctx) // "Hello, world"
//
// A sequence may be switched to Direct mode, after which every Append is
// written to the store immediately.
package seq
