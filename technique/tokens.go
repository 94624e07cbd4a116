package technique

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/raglab/raglab/common/logger"
)

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// countTokens measures text with the cl100k_base tokenizer. When the
// encoding is unavailable (offline environments) it falls back to the
// usual 4-chars-per-token estimate.
func countTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			logger.Warnf("technique: tiktoken unavailable, estimating tokens: %v", err)
			return
		}
		encoder = enc
	})
	if encoder == nil {
		return (len(text) + 3) / 4
	}
	return len(encoder.Encode(text, nil, nil))
}
