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

package remote

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/remactgo/remact/codec"
	"github.com/remactgo/remact/internal/compression"
)

const (
	// flagCompressed marks a zstd compressed frame body
	flagCompressed byte = 1 << 0

	// DefaultMaxFrameSize bounds a single frame
	DefaultMaxFrameSize = 16 << 20

	// frames smaller than this are never compressed
	compressionThreshold = 512
)

// ErrFrameTooLarge is returned when reading or writing a frame bigger than the limit
var ErrFrameTooLarge = errors.New("remote: frame too large")

// frameCodec turns envelopes into frame bodies: one flags byte followed by
// the, possibly compressed, serialized envelope.
type frameCodec struct {
	serializer   codec.Serializer
	compressor   compression.Compressor
	compress     bool
	maxFrameSize int
}

func newFrameCodec(serializer codec.Serializer, compress bool, maxFrameSize int) *frameCodec {
	if serializer == nil {
		serializer = codec.NewCBORSerializer(nil)
	}
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &frameCodec{
		serializer:   serializer,
		compressor:   compression.NewZstdCompressor(),
		compress:     compress,
		maxFrameSize: maxFrameSize,
	}
}

func (f *frameCodec) encode(envelope *codec.Envelope) ([]byte, error) {
	data, err := f.serializer.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	if f.compress && len(data) >= compressionThreshold {
		frame := make([]byte, 1, len(data)/2+1)
		frame[0] = flagCompressed
		if frame, err = f.compressor.Compress(frame, data); err != nil {
			return nil, err
		}
		if len(frame) > f.maxFrameSize {
			return nil, ErrFrameTooLarge
		}
		return frame, nil
	}

	if len(data)+1 > f.maxFrameSize {
		return nil, ErrFrameTooLarge
	}
	frame := make([]byte, 0, len(data)+1)
	frame = append(frame, 0)
	return append(frame, data...), nil
}

func (f *frameCodec) decode(frame []byte) (*codec.Envelope, error) {
	if len(frame) < 1 {
		return nil, errors.New("remote: empty frame")
	}

	body := frame[1:]
	if frame[0]&flagCompressed != 0 {
		var err error
		if body, err = f.compressor.Decompress(nil, body); err != nil {
			return nil, fmt.Errorf("remote: invalid compressed frame: %w", err)
		}
	}
	return f.serializer.Unmarshal(body)
}

// writeLengthPrefixed writes a 4 bytes big endian length header followed by frame
func writeLengthPrefixed(w io.Writer, frame []byte) error {
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(frame)))
	copy(buf[4:], frame)
	_, err := w.Write(buf)
	return err
}

// readLengthPrefixed reads a frame written by writeLengthPrefixed
func readLengthPrefixed(r io.Reader, maxFrameSize int) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(hdr[:])
	if size == 0 {
		return nil, errors.New("remote: empty frame")
	}
	if int64(size) > int64(maxFrameSize) {
		return nil, ErrFrameTooLarge
	}

	frame := make([]byte, size)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}
