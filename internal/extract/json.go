package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bull/docindex/internal/document"
)

// extractJSON validates and pretty-prints JSON so nested values land on
// their own lines for paragraph chunking. No structural metadata variant;
// generic chunking applies.
func extractJSON(data []byte) (*Output, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyContent
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	text := string(pretty)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	return &Output{
		Text:      text,
		WordCount: countWords(text),
		Structure: document.Structure{Kind: document.KindNone},
	}, nil
}
