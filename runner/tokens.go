package runner

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/agentkit-go/agentkit/core"
)

// Chat-format accounting: every message carries a small framing overhead and
// every reply is primed with an assistant header.
const (
	messageOverheadTokens = 3
	replyPrimingTokens    = 3
)

var (
	encodingsMu sync.Mutex
	encodings   = map[string]*tiktoken.Tiktoken{}
)

// encodingFor returns a cached tiktoken encoding for the model. Non-OpenAI
// models are approximated with cl100k_base, which is close enough for
// history budgeting.
func encodingFor(modelName string) (*tiktoken.Tiktoken, error) {
	name := encodingName(modelName)

	encodingsMu.Lock()
	defer encodingsMu.Unlock()

	if enc, ok := encodings[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	encodings[name] = enc
	return enc, nil
}

func encodingName(modelName string) string {
	for _, prefix := range []string{"gpt-4o", "gpt-4.1", "gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(modelName, prefix) {
			return "o200k_base"
		}
	}
	return "cl100k_base"
}

// itemTokens approximates the tokens one conversation item contributes to a
// chat request: role, text and any function call or response payloads.
func itemTokens(enc *tiktoken.Tiktoken, item core.Item) int {
	tokens := messageOverheadTokens
	tokens += len(enc.Encode(item.Content.Role, nil, nil))
	if text := item.Content.Text(); text != "" {
		tokens += len(enc.Encode(text, nil, nil))
	}
	for _, fc := range item.Content.FunctionCalls() {
		tokens += len(enc.Encode(fc.Name, nil, nil))
		tokens += len(enc.Encode(fc.Arguments, nil, nil))
	}
	for _, fr := range item.Content.FunctionResponses() {
		tokens += len(enc.Encode(fr.Name, nil, nil))
		tokens += len(enc.Encode(fr.Text(), nil, nil))
	}
	return tokens
}

// trimToTokenBudget drops the oldest items until the remainder fits the
// budget. The newest item is always kept so an oversized latest turn still
// reaches the model. When no encoding is available (tiktoken data missing)
// the items pass through untrimmed.
func trimToTokenBudget(items []core.Item, budget int, modelName string) []core.Item {
	if len(items) == 0 || budget <= 0 {
		return items
	}
	enc, err := encodingFor(modelName)
	if err != nil {
		return items
	}

	total := replyPrimingTokens
	start := len(items)
	for i := len(items) - 1; i >= 0; i-- {
		cost := itemTokens(enc, items[i])
		if total+cost > budget {
			break
		}
		total += cost
		start = i
	}
	if start == len(items) {
		start = len(items) - 1
	}
	return items[start:]
}
