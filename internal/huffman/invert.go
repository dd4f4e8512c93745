package huffman

// Invert converts between TLK wire form and engine-native form: reverse
// the sequence and remap every non-negative index i to
// (len-1)-i. This moves the root from the last slot (engine-native form)
// to slot 0 (TLK wire form) and is its own inverse, so the same function
// converts either direction.
func Invert(pairs Table) Table {
	n := len(pairs)
	out := make(Table, n)
	remap := func(v int32) int32 {
		if v < 0 {
			return v
		}
		return int32(n-1) - v
	}
	for i, p := range pairs {
		out[n-1-i] = Pair{Left: remap(p.Left), Right: remap(p.Right)}
	}
	return out
}
