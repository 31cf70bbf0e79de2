package frame

// Mask is a per-row boolean sequence aligned to a dataset's rows.
// Mask operations never modify their operands.
type Mask []bool

// NewMask returns a mask of n rows all set to v.
func NewMask(n int, v bool) Mask {
	m := make(Mask, n)
	if v {
		for i := range m {
			m[i] = true
		}
	}
	return m
}

// And returns the elementwise AND of m and other.
// Panics if the lengths differ.
func (m Mask) And(other Mask) Mask {
	mustAlign(m, other)
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] && other[i]
	}
	return out
}

// Or returns the elementwise OR of m and other.
// Panics if the lengths differ.
func (m Mask) Or(other Mask) Mask {
	mustAlign(m, other)
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] || other[i]
	}
	return out
}

// Not returns the elementwise negation of m.
func (m Mask) Not() Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = !m[i]
	}
	return out
}

// Count returns the number of true rows.
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// Indices returns the positions of the true rows in ascending order.
func (m Mask) Indices() []int {
	out := make([]int, 0, m.Count())
	for i, v := range m {
		if v {
			out = append(out, i)
		}
	}
	return out
}

func mustAlign(a, b Mask) {
	if len(a) != len(b) {
		panic("frame: mask length mismatch")
	}
}
