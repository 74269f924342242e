package processor

import (
	"errors"
	"strings"
)

// ErrInvalidWindow is returned when the overlap does not fit inside the window.
var ErrInvalidWindow = errors.New("chunk overlap must be positive and smaller than chunk size")

// Chunk splits text into overlapping windows of at most maxChars characters.
// Consecutive windows share exactly overlap characters before trimming.
func Chunk(text string, maxChars, overlap int) ([]string, error) {
	if overlap <= 0 || overlap >= maxChars {
		return nil, ErrInvalidWindow
	}

	runes := []rune(strings.TrimSpace(text))
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	chunks := make([]string, 0, n/(maxChars-overlap)+1)
	start := 0
	for {
		end := min(start+maxChars, n)

		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			chunks = append(chunks, window)
		}

		if end >= n {
			break
		}
		start = max(0, end-overlap)
	}

	return chunks, nil
}
