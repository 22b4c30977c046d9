package topics

import (
	"context"

	"go.uber.org/zap"

	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

// DocumentSource selects which post text feeds the topic model
type DocumentSource string

const (
	SourceSelftext DocumentSource = "selftext"
	SourceComments DocumentSource = "comments"
)

// Embedder produces one embedding vector per input text
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine clusters post documents into topics with dataset-size-adaptive
// parameters. Must be initialized with an embedder before use.
type Engine struct {
	embedder  Embedder
	batchSize int
	source    DocumentSource

	// lastParams is the parameter set used by the most recent run
	lastParams *Params
}

// NewEngine creates an uninitialized topic engine
func NewEngine(source DocumentSource, batchSize int) *Engine {
	return &Engine{source: source, batchSize: batchSize}
}

// Initialize attaches the embedding model
func (e *Engine) Initialize(embedder Embedder) {
	e.embedder = embedder
}

// LastParams exposes the parameter set chosen on the most recent run
func (e *Engine) LastParams() *Params {
	return e.lastParams
}

// FitTransform embeds, reduces and clusters the posts, returning one
// assignment per post with the outlier cluster already stripped
func (e *Engine) FitTransform(ctx context.Context, posts []models.ForumPost) ([]models.TopicAssignment, error) {
	if e.embedder == nil {
		return nil, pipeerrors.Wrap(pipeerrors.ErrNotInitialized, "topic engine has no embedding model")
	}
	if len(posts) == 0 {
		return nil, pipeerrors.Wrap(pipeerrors.ErrEmptyInput, "topic engine received no documents")
	}

	docs := make([]string, len(posts))
	for i, post := range posts {
		docs[i] = e.documentFor(post)
	}

	embeddings, err := e.embedAll(ctx, docs)
	if err != nil {
		return nil, pipeerrors.Wrap(err, "document embedding failed")
	}

	params := ParamsFor(len(docs))
	e.lastParams = &params

	reduced, err := reduce(embeddings, params.Components)
	if err != nil {
		return nil, pipeerrors.Wrap(err, "dimensionality reduction failed")
	}

	labels := cluster(reduced, params)

	assignments := make([]models.TopicAssignment, 0, len(posts))
	for i, post := range posts {
		if labels[i] == models.TopicOutlier {
			continue
		}
		assignments = append(assignments, models.TopicAssignment{
			ForumPost: post,
			Topic:     labels[i],
		})
	}

	logger.Info("topic clustering complete",
		zap.Int("documents", len(posts)),
		zap.Int("assigned", len(assignments)),
		zap.Int("outliers", len(posts)-len(assignments)),
		zap.Int("components", params.Components),
		zap.Int("min_cluster_size", params.MinClusterSize),
	)

	return assignments, nil
}

// documentFor builds the clustering document for one post, normalizing
// missing text to empty string
func (e *Engine) documentFor(post models.ForumPost) string {
	if e.source == SourceComments {
		return post.CommentText()
	}
	return post.Selftext
}

// embedAll runs the embedder over fixed-size batches, in input order
func (e *Engine) embedAll(ctx context.Context, docs []string) ([][]float64, error) {
	out := make([][]float64, 0, len(docs))

	for start := 0; start < len(docs); start += e.batchSize {
		end := start + e.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		vectors, err := e.embedder.Embed(ctx, docs[start:end])
		if err != nil {
			return nil, err
		}

		for _, v := range vectors {
			row := make([]float64, len(v))
			for i, x := range v {
				row[i] = float64(x)
			}
			out = append(out, row)
		}
	}

	return out, nil
}
