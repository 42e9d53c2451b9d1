// Package bitio provides MSB-first bit-level packing used by the codec
// suite's FOR and PFOR codecs to pack fixed-width integer offsets tighter
// than a byte boundary.
//
// Bits accumulate into a small scratch register and flush a byte at a
// time once 8 bits are held, so arbitrary, non-64-dividing bit widths can
// be packed back to back without padding between values.
package bitio

import "github.com/mattsta/datakit/internal/pool"

// Writer accumulates bits MSB-first into a pooled byte buffer.
type Writer struct {
	buf      *pool.ByteBuffer
	acc      uint32
	bitCount int // valid bits currently held in acc, always 0-7 between WriteBits calls
}

// NewWriter creates a bit writer backed by a buffer pulled from the shared
// pool. Callers must call Release after extracting Bytes().
func NewWriter() *Writer {
	return &Writer{buf: pool.GetBuffer()}
}

// WriteBits appends the low nbits bits of value, most-significant bit
// first. nbits must be in [0, 64].
func (w *Writer) WriteBits(value uint64, nbits int) {
	for nbits > 0 {
		take := 8 - w.bitCount
		if take > nbits {
			take = nbits
		}

		shift := nbits - take
		chunk := (value >> uint(shift)) & ((1 << uint(take)) - 1)

		w.acc = (w.acc << uint(take)) | uint32(chunk)
		w.bitCount += take
		nbits -= take

		if w.bitCount == 8 {
			w.buf.Grow(1)
			w.buf.MustWrite([]byte{byte(w.acc)})
			w.acc = 0
			w.bitCount = 0
		}
	}
}

// Flush pads any partial trailing byte with zero low-order bits and
// appends it. Safe to call multiple times; a no-op once fully flushed.
func (w *Writer) Flush() {
	if w.bitCount == 0 {
		return
	}

	b := byte(w.acc << uint(8-w.bitCount))
	w.buf.Grow(1)
	w.buf.MustWrite([]byte{b})
	w.acc = 0
	w.bitCount = 0
}

// Len returns the number of whole bytes written so far (excluding any
// unflushed partial byte).
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes flushes any pending bits and returns the accumulated byte slice.
// The slice is valid until the writer is released back to the pool.
func (w *Writer) Bytes() []byte {
	w.Flush()
	return w.buf.Bytes()
}

// Release returns the underlying buffer to the pool. The writer must not
// be used afterward.
func (w *Writer) Release() {
	pool.PutBuffer(w.buf)
	w.buf = nil
}
