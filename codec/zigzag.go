package codec

// zigzagEncode maps the two's-complement bit pattern of a uint64-wraparound
// delta onto an unsigned value where small magnitudes (positive or
// negative) produce small results. Operating directly on the wraparound
// bit pattern (rather than an int64 arithmetic difference) keeps the
// encoding well-defined for every pair of uint64 inputs, including ones
// whose difference would overflow int64.
func zigzagEncode(delta uint64) uint64 {
	s := int64(delta)
	return uint64((s << 1) ^ (s >> 63))
}

// zigzagDecode reverses zigzagEncode.
func zigzagDecode(z uint64) uint64 {
	s := int64(z>>1) ^ -int64(z&1)
	return uint64(s)
}
