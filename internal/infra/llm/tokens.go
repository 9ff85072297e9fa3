package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	bpeOnce sync.Once
	bpeEnc  tokenizer.Codec
)

func encoder() tokenizer.Codec {
	bpeOnce.Do(func() {
		enc, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			bpeEnc = enc
		}
	})
	return bpeEnc
}

// EstimateTokens approximates the prompt size of history with cl100k, plus the
// per-message and reply-priming overhead of the chat format. It is a log hint only.
func EstimateTokens(history []Message) int {
	enc := encoder()
	total := 3
	for _, m := range history {
		total += 4
		if enc == nil {
			total += len(m.Content) / 4
			continue
		}
		ids, _, err := enc.Encode(m.Content)
		if err != nil {
			total += len(m.Content) / 4
			continue
		}
		total += len(ids)
	}
	return total
}
