package diff

// Compute returns the shortest edit script turning a into b using the Myers
// diff algorithm over whole lines. Within each changed region every Removed
// operation precedes the Added ones.
//
// The linear-space variant is used: each step finds the middle snake of the
// optimal path and recurses on the halves around it. Time is O((N+M)*D) and
// memory O(N+M), where N and M are the lengths of a and b and D is the size
// of the minimum edit script.
func Compute(a, b []string) []Operation {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	limit := (len(a)+len(b)+1)/2 + 1
	d := &differ{
		a:   a,
		b:   b,
		off: limit,
		vf:  make([]int, 2*limit+1),
		vb:  make([]int, 2*limit+1),
		ops: make([]Operation, 0, len(a)+len(b)),
	}
	d.compare(0, len(a), 0, len(b))
	return groupChanges(d.ops)
}

// differ holds the inputs and the two diagonal vectors shared by every
// recursion level. Vector entries are only read after being written in the
// same middleSnake call, so they are never cleared.
type differ struct {
	a, b   []string
	off    int
	vf, vb []int
	ops    []Operation
}

func (d *differ) common(i, j int) {
	d.ops = append(d.ops, Operation{Kind: Common, OldIndex: i, NewIndex: j})
}

// compare appends the edit script for a[aLo:aHi] against b[bLo:bHi].
func (d *differ) compare(aLo, aHi, bLo, bHi int) {
	for aLo < aHi && bLo < bHi && d.a[aLo] == d.b[bLo] {
		d.common(aLo, bLo)
		aLo++
		bLo++
	}
	aEnd := aHi
	for aLo < aHi && bLo < bHi && d.a[aHi-1] == d.b[bHi-1] {
		aHi--
		bHi--
	}

	switch {
	case aLo == aHi:
		for j := bLo; j < bHi; j++ {
			d.ops = append(d.ops, Operation{Kind: Added, OldIndex: -1, NewIndex: j})
		}
	case bLo == bHi:
		for i := aLo; i < aHi; i++ {
			d.ops = append(d.ops, Operation{Kind: Removed, OldIndex: i, NewIndex: -1})
		}
	default:
		x, y, u, v := d.middleSnake(aLo, aHi, bLo, bHi)
		d.compare(aLo, x, bLo, y)
		for i := x; i < u; i++ {
			d.common(i, y+i-x)
		}
		d.compare(u, aHi, v, bHi)
	}

	for i := aHi; i < aEnd; i++ {
		d.common(i, bHi+i-aHi)
	}
}

// middleSnake runs the forward and reverse searches over a[aLo:aHi] and
// b[bLo:bHi] until they overlap and returns the snake where they met, as
// absolute start (x, y) and end (u, v). Both ranges must be non-empty with
// differing first and last lines, so the edit distance is at least two and
// both halves around the snake are strictly smaller problems.
func (d *differ) middleSnake(aLo, aHi, bLo, bHi int) (x, y, u, v int) {
	n, m := aHi-aLo, bHi-bLo
	delta := n - m
	odd := delta%2 != 0
	vf, vb, off := d.vf, d.vb, d.off
	vf[off+1] = 0
	vb[off+1] = 0

	for step := 0; step <= (n+m+1)/2; step++ {
		// Forward: vf[off+k] is the furthest x on diagonal k = x-y.
		for k := -step; k <= step; k += 2 {
			var px int
			if k == -step || (k != step && vf[off+k-1] < vf[off+k+1]) {
				px = vf[off+k+1]
			} else {
				px = vf[off+k-1] + 1
			}
			py := px - k
			sx, sy := px, py
			for px < n && py < m && d.a[aLo+px] == d.b[bLo+py] {
				px++
				py++
			}
			vf[off+k] = px
			if rk := delta - k; odd && rk >= -(step-1) && rk <= step-1 && px+vb[off+rk] >= n {
				return aLo + sx, bLo + sy, aLo + px, bLo + py
			}
		}

		// Reverse: the same search over both inputs read backwards, so
		// vb[off+k] is the furthest distance from the end on reverse
		// diagonal k, which is forward diagonal delta-k.
		for k := -step; k <= step; k += 2 {
			var px int
			if k == -step || (k != step && vb[off+k-1] < vb[off+k+1]) {
				px = vb[off+k+1]
			} else {
				px = vb[off+k-1] + 1
			}
			py := px - k
			sx, sy := px, py
			for px < n && py < m && d.a[aHi-1-px] == d.b[bHi-1-py] {
				px++
				py++
			}
			vb[off+k] = px
			if fk := delta - k; !odd && fk >= -step && fk <= step && vf[off+fk]+px >= n {
				return aHi - px, bHi - py, aHi - sx, bHi - sy
			}
		}
	}

	// Unreachable: the searches meet within ceil((n+m)/2) steps.
	panic("diff: middle snake not found")
}

// groupChanges stably moves Removed operations ahead of Added ones inside
// each run of non-Common operations. Index order within each kind is kept.
func groupChanges(ops []Operation) []Operation {
	out := make([]Operation, 0, len(ops))
	var added []Operation
	for _, op := range ops {
		switch op.Kind {
		case Removed:
			out = append(out, op)
		case Added:
			added = append(added, op)
		default:
			out = append(out, added...)
			added = added[:0]
			out = append(out, op)
		}
	}
	return append(out, added...)
}
