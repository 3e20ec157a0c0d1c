// Package tokens counts model tokens in text.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/ai-asa/chat-websearch/internal/common/logger"
)

// Counter returns the token count of text. Implementations are deterministic and never negative.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }

const (
	DefaultEncoding = "o200k_base"
	EstimateName    = "estimate"
)

var loaderOnce sync.Once

// TiktokenCounter counts with a BPE encoding loaded from embedded ranks, so no network is needed.
type TiktokenCounter struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewTiktoken resolves name as an encoding ("cl100k_base") or, failing that, a model name ("gpt-4o").
func NewTiktoken(name string) (*TiktokenCounter, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		var modelErr error
		enc, modelErr = tiktoken.EncodingForModel(name)
		if modelErr != nil {
			return nil, err
		}
	}
	return &TiktokenCounter{enc: enc, name: name}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *TiktokenCounter) Name() string { return c.name }

// EstimateCounter approximates token counts without a vocabulary: CJK runes cost
// about half a token each, everything else about a quarter.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	var cjk, other int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return cjk/2 + other/4 + 1
}

func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // unified ideographs
		return true
	case r >= 0x3040 && r <= 0x30FF: // hiragana, katakana
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // hangul syllables
		return true
	}
	return false
}

// New picks a counter by name. Unknown encodings fall back to the estimator.
func New(name string, log logger.Logger) Counter {
	if name == "" {
		name = DefaultEncoding
	}
	if name == EstimateName {
		return EstimateCounter{}
	}
	c, err := NewTiktoken(name)
	if err != nil {
		if log != nil {
			log.Warn("token encoding unavailable, using estimate", map[string]interface{}{
				"encoding": name,
				"error":    err.Error(),
			})
		}
		return EstimateCounter{}
	}
	return c
}
