package buf

// CString allocates len(parts...)+1 bytes from alloc and writes the
// concatenated parts followed by a NUL terminator. It returns nil if the
// allocator cannot serve the request.
func CString(alloc Allocator, parts ...string) []byte {
	var size int
	for _, part := range parts {
		size += len(part)
	}
	buffer := alloc.Get(size + 1)
	if buffer == nil {
		return nil
	}
	n := 0
	for _, part := range parts {
		n += copy(buffer[n:], part)
	}
	buffer[n] = 0
	return buffer[:n+1]
}

// GoString returns the bytes before the first NUL of data.
func GoString(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

// IsCString reports whether data ends with its only NUL byte.
func IsCString(data []byte) bool {
	if len(data) == 0 || data[len(data)-1] != 0 {
		return false
	}
	for _, b := range data[:len(data)-1] {
		if b == 0 {
			return false
		}
	}
	return true
}
