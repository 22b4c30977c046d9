package ml

import (
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

// Encoder wraps a pretrained tokenizer, truncating to a fixed maximum token
// length and padding every batch to its longest row
type Encoder struct {
	tk        *tokenizer.Tokenizer
	maxTokens int
}

// NewEncoder loads a tokenizer definition from file
func NewEncoder(path string, maxTokens int) (*Encoder, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, pipeerrors.Wrapf(err, "failed to load tokenizer %s", path)
	}

	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxTokens,
		Strategy:  tokenizer.LongestFirst,
	})

	return &Encoder{tk: tk, maxTokens: maxTokens}, nil
}

// EncodeBatch tokenizes texts into padded input_ids and attention_mask rows.
// Empty strings still encode to their special tokens, so every row is valid
// model input.
func (e *Encoder) EncodeBatch(texts []string) (ids, mask [][]int64, err error) {
	ids = make([][]int64, len(texts))
	mask = make([][]int64, len(texts))

	maxLen := 1
	for i, text := range texts {
		en, err := e.tk.EncodeSingle(text, true)
		if err != nil {
			return nil, nil, pipeerrors.Wrapf(err, "failed to tokenize row %d", i)
		}

		row := make([]int64, len(en.Ids))
		rowMask := make([]int64, len(en.Ids))
		for j, id := range en.Ids {
			row[j] = int64(id)
			rowMask[j] = 1
		}

		ids[i] = row
		mask[i] = rowMask
		if len(row) > maxLen {
			maxLen = len(row)
		}
	}

	// Pad to the longest row in the batch
	for i := range ids {
		for len(ids[i]) < maxLen {
			ids[i] = append(ids[i], 0)
			mask[i] = append(mask[i], 0)
		}
	}

	return ids, mask, nil
}
