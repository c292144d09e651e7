package conv

const hexd = "0123456789abcdef"

// Hex32 formats n as "0x" followed by 8 lowercase, zero-padded hex digits.
func Hex32(n uint32) string {
	var buf [10]byte
	return string(putHex(buf[:], uint64(n), 8))
}

// HexAddr formats a register address; 8 digits for 32-bit values, 16 above.
func HexAddr(a uintptr) string {
	var buf [18]byte
	digits := 8
	if uint64(a) > 0xffffffff {
		digits = 16
	}
	return string(putHex(buf[:], uint64(a), digits))
}

// putHex writes the prefixed digits into the tail of buf and returns them.
func putHex(buf []byte, n uint64, digits int) []byte {
	i := len(buf)
	for j := 0; j < digits; j++ {
		i--
		buf[i] = hexd[n&0xf]
		n >>= 4
	}
	i--
	buf[i] = 'x'
	i--
	buf[i] = '0'
	return buf[i:]
}
