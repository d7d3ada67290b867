// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package compression holds the frame compressors used by the remote transports.
package compression

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Zstd is the name of the Zstandard compression algorithm.
// Reference: https://www.iana.org/assignments/http-parameters/http-parameters.xml#content-coding
const Zstd = "zstd"

// maxDecodedSize bounds a single decompressed frame
const maxDecodedSize = 64 << 20

// ErrFrameTooLarge is returned when a frame decompresses beyond the allowed size
var ErrFrameTooLarge = errors.New("compression: decoded frame too large")

var zstdEncodersPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedFastest),
			zstd.WithEncoderConcurrency(1),
			zstd.WithLowerEncoderMem(true))
		if err != nil {
			return nil
		}
		return enc
	},
}

var zstdDecodersPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxDecodedSize))
		if err != nil {
			return nil
		}
		return dec
	},
}

// Compressor compresses and decompresses whole frames
type Compressor interface {
	// Name returns the content coding name
	Name() string
	// Compress appends the compressed form of src to dst
	Compress(dst, src []byte) ([]byte, error)
	// Decompress appends the decompressed form of src to dst
	Decompress(dst, src []byte) ([]byte, error)
}

// ZstdCompressor compresses frames with pooled zstd encoders and decoders.
// It is safe for concurrent use.
type ZstdCompressor struct{}

var _ Compressor = ZstdCompressor{}

// NewZstdCompressor creates a new Zstandard compressor.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}

// Name implements Compressor
func (ZstdCompressor) Name() string {
	return Zstd
}

// Compress implements Compressor
func (ZstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	enc, ok := zstdEncodersPool.Get().(*zstd.Encoder)
	if !ok || enc == nil {
		return nil, fmt.Errorf("compression: %s encoder unavailable", Zstd)
	}
	defer zstdEncodersPool.Put(enc)
	return enc.EncodeAll(src, dst), nil
}

// Decompress implements Compressor
func (ZstdCompressor) Decompress(dst, src []byte) ([]byte, error) {
	dec, ok := zstdDecodersPool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		return nil, fmt.Errorf("compression: %s decoder unavailable", Zstd)
	}
	defer zstdDecodersPool.Put(dec)

	out, err := dec.DecodeAll(src, dst)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, ErrFrameTooLarge
		}
		return nil, err
	}
	return out, nil
}
