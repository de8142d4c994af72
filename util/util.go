// Package util holds small generic helpers shared by packages that poke at
// raw memory: alignment arithmetic and fixed-width field access. It plays
// the same role biscuit's util package does.
package util

import "unsafe"

// Int is satisfied by every built-in integer type; the alignment helpers
// below are generic over it so the same code serves page counts (int),
// physical addresses (uintptr-based types), and TRB indices (uint32) alike.
type Int interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Min returns the smaller of a and b.
func Min[T Int](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T Int](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Rounddown aligns v down to the nearest multiple of b.
func Rounddown[T Int](v, b T) T {
	return v - (v % b)
}

// Roundup aligns v up to the nearest multiple of b.
func Roundup[T Int](v, b T) T {
	return Rounddown(v+b-1, b)
}

// DivRoundup divides v by b, rounding up — used for page counts from byte
// sizes (e.g. sysapi's framebuffer and heap page counts).
func DivRoundup[T Int](v, b T) T {
	return (v + b - 1) / b
}

// Readn reads n bytes (1, 2, 4, or 8) from a starting at off and returns
// the value. It panics if the requested region is out of bounds or n is
// not one of the supported widths.
func Readn(a []uint8, n int, off int) int {
	if off < 0 || off+n > len(a) {
		panic("Readn out of bounds")
	}
	p := unsafe.Pointer(&a[off])
	var ret int
	switch n {
	case 8:
		ret = *(*int)(p)
	case 4:
		ret = int(*(*uint32)(p))
	case 2:
		ret = int(*(*uint16)(p))
	case 1:
		ret = int(*(*uint8)(p))
	default:
		panic("unsupported size")
	}
	return ret
}

// Writen writes val using sz bytes into a starting at off.
func Writen(a []uint8, sz int, off int, val int) {
	if off < 0 || off+sz > len(a) {
		panic("Writen out of bounds")
	}
	p := unsafe.Pointer(&a[off])
	switch sz {
	case 8:
		*(*int)(p) = val
	case 4:
		*(*uint32)(p) = uint32(val)
	case 2:
		*(*uint16)(p) = uint16(val)
	case 1:
		*(*uint8)(p) = uint8(val)
	default:
		panic("unsupported size")
	}
}

// BE32 decodes a big-endian uint32, the layout every wire format in inet
// and tcp uses.
func BE32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// PutBE32 encodes v as big-endian into b, which must have length >= 4.
func PutBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// BE16 decodes a big-endian uint16.
func BE16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// PutBE16 encodes v as big-endian into b, which must have length >= 2.
func PutBE16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}
