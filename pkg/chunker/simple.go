package chunker

// simpleSpans slides a window of chunkSize runes, advancing by
// chunkSize-overlap. Each window is trimmed; windows left empty are dropped.
func simpleSpans(runes []rune, chunkSize, overlap int) []span {
	total := len(runes)
	step := chunkSize - overlap

	var spans []span
	for i := 0; i < total; i += step {
		end := i + chunkSize
		if end > total {
			end = total
		}

		if s := trimSpan(runes, i, end); s.start < s.end {
			spans = append(spans, s)
		}

		if end == total {
			break
		}
	}
	return spans
}
