package journal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4"
	"github.com/ugorji/go/codec"
)

// Raw blob layout: original length u32 LE | flag | body.
const (
	blobRaw byte = 0
	blobLZ4 byte = 1

	blobHeader = 5
)

var errBadBlob = errors.New("corrupt journal blob")

var cborHandle = &codec.CborHandle{}

func compress(data []byte) ([]byte, error) {
	out := make([]byte, blobHeader+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(out, uint32(len(data)))

	n, err := lz4.CompressBlock(data, out[blobHeader:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	// lz4 reports 0 for input it cannot shrink
	if n == 0 || n >= len(data) {
		out[4] = blobRaw
		n = copy(out[blobHeader:], data)
	} else {
		out[4] = blobLZ4
	}
	return out[:blobHeader+n], nil
}

func decompress(blob []byte) ([]byte, error) {
	if len(blob) < blobHeader {
		return nil, errBadBlob
	}
	size := int(binary.LittleEndian.Uint32(blob))
	body := blob[blobHeader:]

	switch blob[4] {
	case blobRaw:
		if len(body) != size {
			return nil, errBadBlob
		}
		return append([]byte(nil), body...), nil
	case blobLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		if n != size {
			return nil, errBadBlob
		}
		return out, nil
	}
	return nil, errBadBlob
}

func encodeAffected(a []Affected) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, cborHandle).Encode(a); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return buf, nil
}

func decodeAffected(data []byte) ([]Affected, error) {
	var a []Affected
	if len(data) == 0 {
		return nil, nil
	}
	if err := codec.NewDecoderBytes(data, cborHandle).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return a, nil
}
