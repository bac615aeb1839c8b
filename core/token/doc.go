// Package token turns raw text into typed tokens.
//
// [Classify] is a pure, lenient scanner: it never fails and silently skips
// runes it cannot classify. A [Normalizer] then collapses whitespace so
// that "a  b" and "a b" produce the same three tokens.
package token
