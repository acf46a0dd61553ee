package conv

const hexd = "0123456789ABCDEF"

// ByteHex writes b as two uppercase hex digits.
func ByteHex(buf []byte, b byte) []byte {
	if len(buf) < 2 {
		return buf[:0]
	}
	i := len(buf) - 2
	buf[i] = hexd[b>>4]
	buf[i+1] = hexd[b&0xF]
	return buf[i:]
}
