package protocol

// A SequenceNumber identifies a fragment's position in the delivery order of a
// DTP connection. Sequence numbers live on a circle of size 2^32: arithmetic
// wraps around silently, and the order of two sequence numbers is decided by
// the shorter way around the circle.
type SequenceNumber uint32

// maxForwardDistance is the largest forward distance at which a sequence
// number still counts as being ahead. At a distance of exactly 2^31 both ways
// around the circle are equally long, and the numerically larger value is
// defined to come first.
const maxForwardDistance = 1<<31 - 1

// Add returns the sequence number n steps ahead of s, wrapping around at the
// end of the sequence number space.
func (s SequenceNumber) Add(n uint32) SequenceNumber {
	return s + SequenceNumber(n)
}

// Sub returns the forward distance from other to s, i.e. the number of
// increments needed to reach s starting at other.
func (s SequenceNumber) Sub(other SequenceNumber) uint32 {
	return uint32(s - other)
}

// Less reports whether s comes before other in circular order.
func (s SequenceNumber) Less(other SequenceNumber) bool {
	if s == other {
		return false
	}
	if s < other {
		return other.Sub(s) <= maxForwardDistance
	}
	return s.Sub(other) > maxForwardDistance
}

// MaxSequenceNumber returns the later of a and b in circular order.
func MaxSequenceNumber(a, b SequenceNumber) SequenceNumber {
	if a.Less(b) {
		return b
	}
	return a
}
