package container

import "fmt"

// Assemble extracts the logically contiguous checkpoint xp[0..L) named by a
// selected superblock out of the (possibly wrapped) descriptor ring xpDesc.
// Reference: spec.md §4.6, invariant P3.
func Assemble(xpDesc [][]byte, start, length uint32) ([][]byte, error) {
	d := uint32(len(xpDesc))
	if d == 0 {
		return nil, fmt.Errorf("container: empty descriptor area")
	}
	if start >= d {
		return nil, fmt.Errorf("container: checkpoint start index %d out of range [0,%d)", start, d)
	}
	if length == 0 || length > d {
		return nil, fmt.Errorf("container: checkpoint length %d out of range (0,%d]", length, d)
	}

	xp := make([][]byte, length)
	if start+length <= d {
		copy(xp, xpDesc[start:start+length])
	} else {
		firstSegment := d - start
		copy(xp, xpDesc[start:d])
		copy(xp[firstSegment:], xpDesc[0:length-firstSegment])
	}
	return xp, nil
}
