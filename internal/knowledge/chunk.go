package knowledge

import "strings"

// ChunkText splits text into overlapping chunks of at most chunkSize
// characters. Splits prefer line boundaries so a chunk rarely cuts a sentence
// mid-word; a single line longer than chunkSize is split hard.
func ChunkText(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		// Hard-split lines that alone exceed the chunk size.
		for len(line) > chunkSize {
			flush()
			chunks = append(chunks, line[:chunkSize])
			start := chunkSize - overlap
			line = line[start:]
		}

		if current.Len()+len(line)+1 > chunkSize {
			tail := overlapTail(current.String(), overlap)
			flush()
			if tail != "" {
				current.WriteString(tail)
				current.WriteString("\n")
			}
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	return chunks
}

// overlapTail returns the last n characters of s, extended left to the
// nearest line start so the overlap carries whole lines.
func overlapTail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if n <= 0 || s == "" {
		return ""
	}
	if len(s) <= n {
		return s
	}
	tail := s[len(s)-n:]
	if idx := strings.IndexByte(tail, '\n'); idx >= 0 {
		tail = tail[idx+1:]
	}
	return tail
}
