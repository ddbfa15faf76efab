package digest

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxMessageLength is the delivery-channel character ceiling per chunk
const DefaultMaxMessageLength = 2000

// SplitMessage splits content into chunks no longer than maxLength,
// breaking on line boundaries. A single line longer than maxLength is
// split at word boundaries where possible and at rune boundaries
// otherwise.
func SplitMessage(content string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	if len(content) <= maxLength {
		return []string{content}
	}

	var chunks []string
	currentChunk := ""

	for _, line := range strings.Split(content, "\n") {
		wouldExceedLimit := len(currentChunk)+len(line)+1 > maxLength

		if wouldExceedLimit {
			if trimmed := strings.TrimSpace(currentChunk); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
			currentChunk = ""

			if len(line) > maxLength {
				longLineChunks := splitLongLine(line, maxLength)
				chunks = append(chunks, longLineChunks[:len(longLineChunks)-1]...)
				currentChunk = longLineChunks[len(longLineChunks)-1]
			} else {
				currentChunk = line
			}
		} else {
			if currentChunk == "" {
				currentChunk = line
			} else {
				currentChunk = currentChunk + "\n" + line
			}
		}
	}

	if trimmed := strings.TrimSpace(currentChunk); trimmed != "" {
		chunks = append(chunks, trimmed)
	}

	return chunks
}

// splitLongLine breaks a single over-long line into pieces no longer
// than maxLength, preferring space boundaries and never cutting a rune
// in half.
func splitLongLine(line string, maxLength int) []string {
	var chunks []string
	remaining := line

	for len(remaining) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(remaining[cut]) {
			cut--
		}
		if cut == 0 {
			// maxLength is smaller than the first rune; emit the
			// rune whole rather than corrupt it
			_, size := utf8.DecodeRuneInString(remaining)
			cut = size
		}

		if idx := strings.LastIndexByte(remaining[:cut], ' '); idx > 0 {
			chunks = append(chunks, remaining[:idx])
			remaining = remaining[idx+1:]
			continue
		}

		chunks = append(chunks, remaining[:cut])
		remaining = remaining[cut:]
	}
	if strings.TrimSpace(remaining) != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}
