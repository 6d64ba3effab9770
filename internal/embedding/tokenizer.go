package embedding

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

const (
	clsTokenID = 101
	sepTokenID = 102
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
// Outputs are padded or truncated to exactly maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64, err error)
}

// HFTokenizer wraps a Hugging Face tokenizer.json (WordPiece, BPE or Unigram).
type HFTokenizer struct {
	tk *tokenizer.Tokenizer
}

// NewHFTokenizer loads a tokenizer.json file.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return &HFTokenizer{tk: tk}, nil
}

// Tokenize encodes text with special tokens and pads to maxTokens.
func (t *HFTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64, err error) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	enc, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to tokenize: %w", err)
	}
	if enc == nil {
		return nil, nil, nil, errors.New("failed to tokenize: empty encoding")
	}
	inputIDs, attentionMask, tokenTypeIDs = fitEncoding(enc, maxTokens)
	return inputIDs, attentionMask, tokenTypeIDs, nil
}

// fitEncoding copies enc into maxTokens-long model inputs. Padding the
// tokenizer added itself is dropped first. When the remaining sequence is
// cut, a closing special token (SEP, </s>) takes the last slot.
func fitEncoding(enc *tokenizer.Encoding, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	n := len(enc.Ids)
	if len(enc.AttentionMask) == n {
		for n > 0 && enc.AttentionMask[n-1] == 0 {
			n--
		}
	}
	typeID := func(i int) int64 {
		if i < len(enc.TypeIds) {
			return int64(enc.TypeIds[i])
		}
		return 0
	}

	keep := min(n, maxTokens)
	closing := n > maxTokens && maxTokens > 1 && isSpecial(enc, n-1)
	if closing {
		keep = maxTokens - 1
	}
	for i := 0; i < keep; i++ {
		inputIDs[i] = int64(enc.Ids[i])
		attentionMask[i] = 1
		tokenTypeIDs[i] = typeID(i)
	}
	if closing {
		inputIDs[keep] = int64(enc.Ids[n-1])
		attentionMask[keep] = 1
		tokenTypeIDs[keep] = typeID(n - 1)
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// isSpecial reports whether token i is a special token. Encodings without a
// mask are treated as ending in one.
func isSpecial(enc *tokenizer.Encoding, i int) bool {
	if len(enc.SpecialTokenMask) != len(enc.Ids) {
		return true
	}
	return enc.SpecialTokenMask[i] == 1
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs (for testing or fallback).
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64, err error) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(word)%29000) + 1000
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepTokenID
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs, nil
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
