package conv

// Itoa writes base-10 representation of n into buf and returns the used slice.
// buf should be length >= 20 for int64. Negative numbers supported.
// No allocations; no fmt/strconv dependency.
func Itoa(buf []byte, n int64) []byte {
	if n >= 0 {
		return Utoa(buf, uint64(n))
	}
	out := Utoa(buf, uint64(-n))
	i := len(buf) - len(out)
	if i == 0 {
		return out
	}
	buf[i-1] = '-'
	return buf[i-1:]
}
