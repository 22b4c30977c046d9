package ml

import (
	"context"

	"github.com/selivandex/coinpulse/internal/adapters/config"
)

// TextClassifier runs a pretrained sequence classification model and returns
// raw per-class logits for one batch of texts
type TextClassifier struct {
	enc        *Encoder
	model      *Model
	numClasses int
}

// NewTextClassifier loads the classifier model and its tokenizer
func NewTextClassifier(cfg *config.ModelsConfig, numClasses int) (*TextClassifier, error) {
	enc, err := NewEncoder(cfg.SentimentTokenizerPath, cfg.MaxTokens)
	if err != nil {
		return nil, err
	}

	model, err := LoadModel(cfg.SentimentModelPath, "logits")
	if err != nil {
		return nil, err
	}

	return &TextClassifier{enc: enc, model: model, numClasses: numClasses}, nil
}

// Logits classifies one batch of texts
func (c *TextClassifier) Logits(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, mask, err := c.enc.EncodeBatch(texts)
	if err != nil {
		return nil, err
	}

	return c.model.Logits(ids, mask, c.numClasses)
}

// Close releases the underlying session
func (c *TextClassifier) Close() {
	c.model.Destroy()
}

// TextEmbedder runs a pretrained sentence-embedding model and returns one
// mean-pooled vector per text
type TextEmbedder struct {
	enc        *Encoder
	model      *Model
	hiddenSize int
}

// NewTextEmbedder loads the embedding model and its tokenizer
func NewTextEmbedder(cfg *config.ModelsConfig) (*TextEmbedder, error) {
	enc, err := NewEncoder(cfg.EmbeddingTokenizerPath, cfg.MaxTokens)
	if err != nil {
		return nil, err
	}

	model, err := LoadModel(cfg.EmbeddingModelPath, "last_hidden_state")
	if err != nil {
		return nil, err
	}

	return &TextEmbedder{enc: enc, model: model, hiddenSize: cfg.EmbeddingDim}, nil
}

// Embed produces mean-pooled embeddings for one batch of texts, weighting
// token states by the attention mask
func (e *TextEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, mask, err := e.enc.EncodeBatch(texts)
	if err != nil {
		return nil, err
	}

	states, err := e.model.HiddenStates(ids, mask, e.hiddenSize)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(states))
	for b, rows := range states {
		pooled := make([]float32, e.hiddenSize)
		var count float32

		for t, row := range rows {
			if mask[b][t] == 0 {
				continue
			}
			for h, v := range row {
				pooled[h] += v
			}
			count++
		}

		if count > 0 {
			for h := range pooled {
				pooled[h] /= count
			}
		}
		out[b] = pooled
	}

	return out, nil
}

// Close releases the underlying session
func (e *TextEmbedder) Close() {
	e.model.Destroy()
}
