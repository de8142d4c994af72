// Package ustr implements the zero-terminated byte-string type used for
// process names, argv, VFS paths, and window titles — biscuit's Ustr,
// generalized to also cover the fixed-size name/title fields the process
// and window tables carry (§3).
package ustr

// Ustr is an immutable path, name, or argument string.
type Ustr []uint8

// Eq compares two Ustr values for equality.
func (us Ustr) Eq(s Ustr) bool {
	if len(us) != len(s) {
		return false
	}
	for i, v := range us {
		if v != s[i] {
			return false
		}
	}
	return true
}

// MkUstrRoot returns a Ustr for the root directory "0:/".
func MkUstrRoot() Ustr {
	return Ustr("0:/")
}

// FromNulSlice converts a NUL-terminated (or full) byte slice to a Ustr,
// truncating at the first NUL. No package in this tree calls it.
func FromNulSlice(buf []uint8) Ustr {
	for i := 0; i < len(buf); i++ {
		if buf[i] == 0 {
			return Ustr(append([]uint8{}, buf[:i]...))
		}
	}
	return Ustr(append([]uint8{}, buf...))
}

// IntoFixed copies us into a fixed-size destination array, NUL-terminating
// and truncating as needed. No package in this tree calls it.
func IntoFixed(dst []byte, us Ustr) {
	n := len(us)
	if n > len(dst)-1 {
		n = len(dst) - 1
	}
	copy(dst, us[:n])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// IsAbsolute reports whether the path begins with a drive qualifier
// ("0:/...") as VFS paths do (§4.8).
func (us Ustr) IsAbsolute() bool {
	for i, c := range us {
		if c == ':' {
			return i+1 < len(us) && us[i+1] == '/'
		}
		if c == '/' {
			return false
		}
	}
	return false
}

// String converts the Ustr to a Go string, for logging.
func (us Ustr) String() string {
	return string(us)
}
