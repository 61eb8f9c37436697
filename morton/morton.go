package morton

import (
	"fmt"
	"math"
)

type Z = uint64

var (
	masks = [...]uint64{
		0b0101010101010101010101010101010101010101010101010101010101010101,
		0b0011001100110011001100110011001100110011001100110011001100110011,
		0b0000111100001111000011110000111100001111000011110000111100001111,
		0b0000000011111111000000001111111100000000111111110000000011111111,
		0b0000000000000000111111111111111100000000000000001111111111111111,
		0b0000000000000000000000000000000011111111111111111111111111111111,
	}
	powersOfTwo = [...]uint64{0, 1, 2, 4, 8, 16}
)

// ToZ interleaves the bits of x and y into a Z-order value.
// x occupies the even bits, y the odd bits.
func ToZ(x, y uint32) Z {
	xx := uint64(x)
	yy := uint64(y)
	for i := 4; i >= 0; i-- {
		xx = (xx | (xx << powersOfTwo[i+1])) & masks[i]
		yy = (yy | (yy << powersOfTwo[i+1])) & masks[i]
	}
	return xx | (yy << 1)
}

// MustToZ is ToZ for callers holding wider integers; it panics when a
// coordinate would not survive the round trip.
func MustToZ(x, y uint64) Z {
	if x > math.MaxUint32 || y > math.MaxUint32 {
		panic(fmt.Errorf(`cannot make Z out of %v and %v`, x, y))
	}
	return ToZ(uint32(x), uint32(y))
}

// FromZ de-interleaves a Z-order value back into its x and y parts.
func FromZ(z Z) (x, y uint32) {
	xx := z
	yy := z >> 1
	for i := 0; i <= 5; i++ {
		xx = (xx | (xx >> powersOfTwo[i])) & masks[i]
		yy = (yy | (yy >> powersOfTwo[i])) & masks[i]
	}
	return uint32(xx), uint32(yy)
}
