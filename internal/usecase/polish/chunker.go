package polish

import (
	"fmt"

	"transcript-polisher/internal/domain/entity"
)

// Split partitions document into overlapping rune spans. A document no
// longer than chunkSize yields one span. Otherwise each span holds
// chunkSize runes (the last may be shorter) and starts overlap runes before
// the previous span ended; the walk stops at the first span reaching the end.
func Split(document string, chunkSize, overlap int) ([]entity.Span, error) {
	return splitLen(len([]rune(document)), chunkSize, overlap)
}

func splitLen(n, chunkSize, overlap int) ([]entity.Span, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}

	if n <= chunkSize {
		return []entity.Span{{Start: 0, End: n}}, nil
	}

	spans := make([]entity.Span, 0, n/(chunkSize-overlap)+1)
	start := 0
	for {
		end := min(start+chunkSize, n)
		spans = append(spans, entity.Span{Start: start, End: end})
		if end == n {
			return spans, nil
		}
		start = end - overlap
	}
}

// sliceRunes returns the text covered by span.
func sliceRunes(runes []rune, span entity.Span) string {
	return string(runes[span.Start:span.End])
}
