package sentiment

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

// NumClasses is the fixed class count of the pretrained sentiment model
const NumClasses = 3

// labelMap is the fixed class index to name table of the pretrained model
var labelMap = map[int]models.SentimentLabel{
	0: models.SentimentNegative,
	1: models.SentimentNeutral,
	2: models.SentimentPositive,
}

// LogitsProvider scores one batch of texts into per-class logits
type LogitsProvider interface {
	Logits(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier runs batched 3-class sentiment inference over post comments.
// Must be initialized with a model before use and finalized before its
// output table can be queried.
type Classifier struct {
	model     LogitsProvider
	batchSize int

	finalized []models.SentimentRecord
}

// NewClassifier creates an uninitialized classifier
func NewClassifier(batchSize int) *Classifier {
	return &Classifier{batchSize: batchSize}
}

// Initialize attaches the classification model
func (c *Classifier) Initialize(model LogitsProvider) {
	c.model = model
}

// Analyze classifies every row in fixed-size batches, in input order.
// Empty text is classified normally, the model still emits probabilities.
func (c *Classifier) Analyze(ctx context.Context, rows []models.TopicAssignment) ([]models.SentimentAssignment, error) {
	if c.model == nil {
		return nil, pipeerrors.Wrap(pipeerrors.ErrNotInitialized, "sentiment model not loaded")
	}

	texts := make([]string, len(rows))
	for i, row := range rows {
		// Multiple comments coerce to a single space-joined string,
		// missing text normalizes to empty string
		texts[i] = row.CommentText()
	}

	out := make([]models.SentimentAssignment, 0, len(rows))

	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		logits, err := c.model.Logits(ctx, texts[start:end])
		if err != nil {
			return nil, pipeerrors.Wrapf(err, "sentiment batch %d-%d failed", start, end)
		}

		for i, row := range logits {
			probs := softmax(row)
			class := argmax(probs)

			out = append(out, models.SentimentAssignment{
				TopicAssignment: rows[start+i],
				Sentiment:       labelMap[class],
				PNeg:            probs[0],
				PNeut:           probs[1],
				PPos:            probs[2],
			})
		}
	}

	logger.Info("sentiment analysis complete",
		zap.Int("rows", len(out)),
		zap.Int("batch_size", c.batchSize),
	)

	return out, nil
}

// Finalize selects and orders the output columns, deriving the date and time
// display strings from each row's creation timestamp
func (c *Classifier) Finalize(assignments []models.SentimentAssignment) []models.SentimentRecord {
	records := make([]models.SentimentRecord, len(assignments))
	for i, a := range assignments {
		records[i] = models.SentimentRecord{
			ID:          a.ID,
			Title:       a.Title,
			Created:     a.Created,
			Date:        a.Created.Format(models.DateLayout),
			Time:        a.Created.Format(models.TimeLayout),
			UpvoteRatio: a.UpvoteRatio,
			Ups:         a.Ups,
			Downs:       a.Downs,
			Score:       a.Score,
			Comments:    a.CommentText(),
			Topic:       a.Topic,
			Sentiment:   a.Sentiment,
			PNeg:        a.PNeg,
			PNeut:       a.PNeut,
			PPos:        a.PPos,
		}
	}

	c.finalized = records
	return records
}

// Records returns the finalized table; querying before Finalize is a
// sequencing error
func (c *Classifier) Records() ([]models.SentimentRecord, error) {
	if c.finalized == nil {
		return nil, pipeerrors.Wrap(pipeerrors.ErrNotFinalized, "sentiment table")
	}
	return c.finalized, nil
}

// softmax converts logits to probabilities that sum to 1
func softmax(logits []float32) []float64 {
	probs := make([]float64, len(logits))

	var maxLogit float64 = math.Inf(-1)
	for _, l := range logits {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
		}
	}

	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	return probs
}

// argmax returns the index of the largest probability
func argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}
