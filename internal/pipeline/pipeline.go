package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/selivandex/coinpulse/internal/export"
	"github.com/selivandex/coinpulse/internal/marketdata"
	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

// Request carries the already-validated run parameters
type Request struct {
	Ticker    string
	Subreddit string
	Keywords  []string
	Window    models.TimeWindow
}

// PriceFetcher fetches the raw price series for an asset
type PriceFetcher interface {
	MarketChartRange(ctx context.Context, assetID string, window models.TimeWindow) ([]byte, error)
}

// ForumRetriever retrieves posts matching keywords inside a window
type ForumRetriever interface {
	Search(ctx context.Context, subreddit string, keywords []string, window models.TimeWindow) ([]models.ForumPost, error)
}

// TopicModeler clusters posts into topics
type TopicModeler interface {
	FitTransform(ctx context.Context, posts []models.ForumPost) ([]models.TopicAssignment, error)
}

// SentimentAnalyzer classifies topic-labeled rows and finalizes the table
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, rows []models.TopicAssignment) ([]models.SentimentAssignment, error)
	Finalize(assignments []models.SentimentAssignment) []models.SentimentRecord
}

// Exporter writes one result table
type Exporter interface {
	Export(x export.Exportable) error
}

// Pipeline runs the sequential analysis stages, threading each stage's
// output into the next as explicit values
type Pipeline struct {
	prices     PriceFetcher
	normalizer *marketdata.Normalizer
	forum      ForumRetriever
	topics     TopicModeler
	sentiment  SentimentAnalyzer
	exporter   Exporter
}

// New creates new analysis pipeline
func New(prices PriceFetcher, normalizer *marketdata.Normalizer, forum ForumRetriever,
	topics TopicModeler, sentiment SentimentAnalyzer, exporter Exporter) *Pipeline {
	return &Pipeline{
		prices:     prices,
		normalizer: normalizer,
		forum:      forum,
		topics:     topics,
		sentiment:  sentiment,
		exporter:   exporter,
	}
}

// Run executes the full pipeline for one request. Any fatal stage error
// aborts the run before the CSV is written. Topic clustering is the one
// stage allowed to fail softly: its rows fall back to the outlier label so
// sentiment analysis and export still proceed.
func (p *Pipeline) Run(ctx context.Context, req Request) error {
	if err := req.Window.Validate(); err != nil {
		return pipeerrors.Wrap(err, "invalid request window")
	}

	logger.Info("pipeline run starting",
		zap.String("ticker", req.Ticker),
		zap.String("subreddit", req.Subreddit),
		zap.Strings("keywords", req.Keywords),
		zap.Time("start", req.Window.Start),
		zap.Time("end", req.Window.End),
	)

	// Market data runs first: an unknown asset aborts the run before any
	// forum retrieval happens
	body, err := p.prices.MarketChartRange(ctx, req.Ticker, req.Window)
	if err != nil {
		return pipeerrors.Wrap(err, "market data fetch failed")
	}

	points, err := p.normalizer.Normalize(req.Ticker, body)
	if err != nil {
		return pipeerrors.Wrap(err, "market data normalization failed")
	}

	marketdata.LogSummary(req.Ticker, points)

	posts, err := p.forum.Search(ctx, req.Subreddit, req.Keywords, req.Window)
	if err != nil {
		return pipeerrors.Wrap(err, "forum retrieval failed")
	}

	topicRows := p.assignTopics(ctx, posts)

	assignments, err := p.sentiment.Analyze(ctx, topicRows)
	if err != nil {
		return pipeerrors.Wrap(err, "sentiment analysis failed")
	}

	records := p.sentiment.Finalize(assignments)

	if err := p.exporter.Export(export.Merged(records, points)); err != nil {
		return err
	}

	logger.Info("pipeline run complete",
		zap.Int("price_samples", len(points)),
		zap.Int("posts", len(posts)),
		zap.Int("exported_rows", len(records)),
	)

	return nil
}

// assignTopics runs topic clustering, downgrading failure to a warning:
// every post keeps the outlier label and the run continues
func (p *Pipeline) assignTopics(ctx context.Context, posts []models.ForumPost) []models.TopicAssignment {
	rows, err := p.topics.FitTransform(ctx, posts)
	if err == nil {
		return rows
	}

	logger.Warn("topic clustering failed, proceeding without topic labels",
		zap.Error(err),
	)

	fallback := make([]models.TopicAssignment, len(posts))
	for i, post := range posts {
		fallback[i] = models.TopicAssignment{ForumPost: post, Topic: models.TopicOutlier}
	}

	return fallback
}
