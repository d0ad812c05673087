package transport

// ReadLine reads one LF-terminated record from ch into buf.
//
// It returns the number of text bytes stored, with the LF and a
// trailing CR removed, and whether an LF ended the record. Reading
// stops at LF, when buf is full, or when no further byte arrives within
// the channel's idle timeout. A record longer than buf is truncated:
// the excess bytes already buffered are discarded through the next LF.
// Nothing is read and 0 is returned when the channel holds no input.
func ReadLine(ch Channel, buf []byte) (n int, eol bool) {
	if ch.Available() == 0 || len(buf) == 0 {
		return 0, false
	}
	for n < len(buf) {
		b, err := ch.ReadByte()
		if err != nil {
			break
		}
		if b == '\n' {
			eol = true
			break
		}
		buf[n] = b
		n++
	}
	if n == len(buf) && !eol {
		eol = discardRecord(ch)
	}
	if n > 0 && buf[n-1] == '\r' {
		n--
	}
	return n, eol
}

// discardRecord drops buffered bytes up to and including the next LF.
// It does not wait for more input.
func discardRecord(ch Channel) bool {
	for ch.Available() > 0 {
		b, err := ch.ReadByte()
		if err != nil {
			return false
		}
		if b == '\n' {
			return true
		}
	}
	return false
}
