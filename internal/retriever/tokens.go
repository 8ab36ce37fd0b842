package retriever

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// TokenCounter estimates the token cost of admitting a chunk into the
// budget.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter estimates ceil(len/4). A documented approximation, not
// tied to any real tokenizer: the budget it enforces is approximate too.
// Callers that need an exact bound should use TiktokenCounter.
type HeuristicCounter struct{}

// Count returns ceil(len(text)/4).
func (HeuristicCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// TiktokenCounter counts exact cl100k_base tokens with the offline BPE
// loader, so no network fetch happens at startup.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var (
	tiktokenOnce sync.Once
	tiktokenEnc  *tiktoken.Tiktoken
	tiktokenErr  error
)

// NewTiktokenCounter returns the shared exact counter. The encoding is
// loaded once per process.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	tiktokenOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		tiktokenEnc, tiktokenErr = tiktoken.GetEncoding("cl100k_base")
	})
	if tiktokenErr != nil {
		return nil, tiktokenErr
	}
	return &TiktokenCounter{encoding: tiktokenEnc}, nil
}

// Count returns the exact token count of text.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}
