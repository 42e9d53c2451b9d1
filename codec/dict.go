package codec

import (
	"fmt"
	"sort"

	"github.com/mattsta/datakit/errs"
	"github.com/mattsta/datakit/internal/bitio"
)

// dictCodec stores a sorted table of distinct values followed by one
// packed table index per input value. Best suited to arrays where few
// distinct values repeat often.
//
// Wire shape: tag byte, table size (tagged varint), that many sorted
// distinct values (tagged varint each), an index bit width (one byte, wide
// enough for [0, tableSize-1]), then the packed index array.
type dictCodec struct{}

func (dictCodec) Encode(dst []byte, values []uint64) ([]byte, error) {
	dst = append(dst, byte(TagDict))

	if len(values) == 0 {
		dst = appendTagged(dst, 0)
		return append(dst, 0), nil
	}

	seen := make(map[uint64]struct{})
	for _, v := range values {
		seen[v] = struct{}{}
	}
	table := make([]uint64, 0, len(seen))
	for v := range seen {
		table = append(table, v)
	}
	sort.Slice(table, func(i, j int) bool { return table[i] < table[j] })

	indexOf := make(map[uint64]int, len(table))
	for i, v := range table {
		indexOf[v] = i
	}

	dst = appendTagged(dst, uint64(len(table)))
	for _, v := range table {
		dst = appendTagged(dst, v)
	}

	width := bitWidth(uint64(len(table) - 1))
	dst = append(dst, byte(width))

	w := bitio.NewWriter()
	for _, v := range values {
		w.WriteBits(uint64(indexOf[v]), width)
	}
	dst = append(dst, w.Bytes()...)
	w.Release()

	return dst, nil
}

func (dictCodec) Decode(data []byte, count int) ([]uint64, int, error) {
	table, width, pos, err := dictParseHeader(data)
	if err != nil {
		return nil, 0, err
	}

	if count == 0 {
		return []uint64{}, pos, nil
	}

	packedBytes := packedByteLen(width, count)
	if len(data) < pos+packedBytes {
		return nil, 0, fmt.Errorf("dict: %w", errs.ErrFormatTruncated)
	}

	r := bitio.NewReader(data[pos:])
	values := make([]uint64, count)
	for i := 0; i < count; i++ {
		idx, err := r.ReadBits(width)
		if err != nil {
			return nil, 0, fmt.Errorf("dict: index %d: %w", i, err)
		}
		if int(idx) >= len(table) {
			return nil, 0, fmt.Errorf("dict: index %d out of table range: %w", i, errs.ErrFormatCountMismatch)
		}
		values[i] = table[idx]
	}

	return values, pos + packedBytes, nil
}

func (dictCodec) MaxEncodedSize(count int) int {
	// Worst case table: every value distinct, so table cost scales with
	// count too.
	return 1 + 9 + count*9 + 1 + packedByteLen(64, count)
}

func (dictCodec) SelfSize(data []byte, count int) (int, error) {
	table, width, pos, err := dictParseHeader(data)
	if err != nil {
		return 0, err
	}
	_ = table
	if count == 0 {
		return pos, nil
	}
	return pos + packedByteLen(width, count), nil
}

func dictParseHeader(data []byte) (table []uint64, width, pos int, err error) {
	if len(data) < 1 || Tag(data[0]) != TagDict {
		return nil, 0, 0, fmt.Errorf("dict: %w", errs.ErrFormatUnknownTag)
	}
	pos = 1

	tableSize, n, err := readTagged(data[pos:])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("dict: table size: %w", err)
	}
	pos += n

	table = make([]uint64, tableSize)
	for i := range table {
		v, n, err := readTagged(data[pos:])
		if err != nil {
			return nil, 0, 0, fmt.Errorf("dict: table entry %d: %w", i, err)
		}
		table[i] = v
		pos += n
	}

	if len(data) < pos+1 {
		return nil, 0, 0, fmt.Errorf("dict: %w", errs.ErrFormatTruncated)
	}
	width = int(data[pos])
	pos++

	return table, width, pos, nil
}
