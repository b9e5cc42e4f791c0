package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with the cl100k_base encoding. The encoding is
// loaded on first use, which may fetch it over the network; a counter whose
// encoding could not be loaded counts zero.
type TokenCounter struct {
	once      sync.Once
	tokenizer *tiktoken.Tiktoken
}

var defaultCounter = &TokenCounter{}

// NewTokenCounter returns the shared counter (cl100k_base，适用于 GPT-3.5/GPT-4)
func NewTokenCounter() *TokenCounter {
	return defaultCounter
}

func (c *TokenCounter) load() *tiktoken.Tiktoken {
	c.once.Do(func() {
		tokenizer, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// 失败时跳过 token 统计
			return
		}
		c.tokenizer = tokenizer
	})
	return c.tokenizer
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if c == nil || text == "" {
		return 0
	}
	tk := c.load()
	if tk == nil {
		return 0
	}
	return len(tk.Encode(text, nil, nil))
}

// CountAll sums Count over texts.
func (c *TokenCounter) CountAll(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += c.Count(t)
	}
	return total
}

// Available reports whether the encoding could be loaded.
func (c *TokenCounter) Available() bool {
	return c != nil && c.load() != nil
}
