package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

var ErrChecksum = errors.New("record checksum mismatch")

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// SealedCodec prefixes every record with an 8 byte BLAKE2b digest of the
// inner encoding and verifies it on the way back.
type SealedCodec struct {
	Inner Codec
}

const sumSize = 8

func sum(data []byte) []byte {
	h, _ := blake2b.New(sumSize, nil)
	h.Write(data)
	return h.Sum(nil)
}

func (c SealedCodec) inner() Codec {
	if c.Inner == nil {
		return JSONCodec{}
	}
	return c.Inner
}

func (c SealedCodec) Marshal(v any) ([]byte, error) {
	data, err := c.inner().Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, sumSize+len(data))
	out = append(out, sum(data)...)
	return append(out, data...), nil
}

func (c SealedCodec) Unmarshal(b []byte, v any) error {
	if len(b) < sumSize {
		return fmt.Errorf("%w: record too short (%d bytes)", ErrChecksum, len(b))
	}
	digest, data := b[:sumSize], b[sumSize:]
	if !bytes.Equal(digest, sum(data)) {
		return ErrChecksum
	}
	return c.inner().Unmarshal(data, v)
}

// Default is the codec the storage adapters use.
var Default Codec = SealedCodec{Inner: JSONCodec{}}
