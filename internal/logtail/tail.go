// Package logtail reads and follows the worker's log stream.
package logtail

import (
	"bytes"
	"os"
	"strings"
)

const tailBlockSize = 4096

// Tail returns up to n trailing lines of the file at path, oldest first.
// The file is read backwards in blocks, so only the tail is ever loaded.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size == 0 {
		return nil, nil
	}

	nl := []byte{'\n'}
	var buf []byte
	offset := size
	for offset > 0 && bytes.Count(buf, nl) <= n {
		step := int64(tailBlockSize)
		if offset < step {
			step = offset
		}
		offset -= step
		chunk := make([]byte, step)
		if _, err := f.ReadAt(chunk, offset); err != nil {
			return nil, err
		}
		buf = append(chunk, buf...)
	}

	text := strings.TrimSuffix(string(buf), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
