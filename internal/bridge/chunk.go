package bridge

import (
	"encoding/json"
	"fmt"
)

// maxContentSize bounds a single index request body. The total payload size
// is estimated from the first record, so records in one batch should be of
// similar shape.
const maxContentSize = 5_000_000

func chunkRecords(records []map[string]any) ([][]map[string]any, error) {
	if len(records) == 0 {
		return nil, nil
	}

	first, err := json.Marshal(records[0])
	if err != nil {
		return nil, fmt.Errorf("encode index record: %w", err)
	}
	recordSize := len(first)
	if recordSize > maxContentSize {
		return nil, fmt.Errorf("index record too large: %d bytes, limit %d", recordSize, maxContentSize)
	}

	total := recordSize * len(records)
	if total <= maxContentSize {
		return [][]map[string]any{records}, nil
	}

	chunksNum := ceilDiv(total, maxContentSize)
	chunkLen := ceilDiv(len(records), chunksNum)

	var chunks [][]map[string]any
	for start := 0; start < len(records); start += chunkLen {
		end := start + chunkLen
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
