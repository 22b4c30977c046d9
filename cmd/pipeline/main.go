package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/selivandex/coinpulse/internal/adapters/config"
	"github.com/selivandex/coinpulse/internal/adapters/price"
	"github.com/selivandex/coinpulse/internal/adapters/reddit"
	"github.com/selivandex/coinpulse/internal/export"
	"github.com/selivandex/coinpulse/internal/marketdata"
	"github.com/selivandex/coinpulse/internal/ml"
	"github.com/selivandex/coinpulse/internal/pipeline"
	"github.com/selivandex/coinpulse/internal/sentiment"
	"github.com/selivandex/coinpulse/internal/topics"
	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
)

func main() {
	var (
		ticker    = flag.String("ticker", "bitcoin", "Asset identifier (CoinGecko id)")
		subreddit = flag.String("subreddit", "CryptoCurrency", "Subreddit to analyze")
		keywords  = flag.String("keywords", "BTC", "Comma-separated title keywords")
		fromDate  = flag.String("from", "", "Window start (YYYY-MM-DD), default 15 days ago")
		toDate    = flag.String("to", "", "Window end (YYYY-MM-DD), default now")
	)

	flag.Parse()

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx, *ticker, *subreddit, *keywords, *fromDate, *toDate); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, ticker, subreddit, keywords, fromDate, toDate string) error {
	// Credentials may live in a local .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	window, err := parseWindow(fromDate, toDate)
	if err != nil {
		return err
	}

	embedder, err := ml.NewTextEmbedder(&cfg.Models)
	if err != nil {
		return fmt.Errorf("failed to load embedding model: %w", err)
	}
	defer embedder.Close()

	classifierModel, err := ml.NewTextClassifier(&cfg.Models, sentiment.NumClasses)
	if err != nil {
		return fmt.Errorf("failed to load sentiment model: %w", err)
	}
	defer classifierModel.Close()

	topicEngine := topics.NewEngine(topics.DocumentSource(cfg.Pipeline.DocumentSource), cfg.Pipeline.BatchSize)
	topicEngine.Initialize(embedder)

	classifier := sentiment.NewClassifier(cfg.Pipeline.BatchSize)
	classifier.Initialize(classifierModel)

	p := pipeline.New(
		price.NewCoinGeckoProvider(&cfg.CoinGecko),
		marketdata.NewNormalizer(),
		reddit.NewClient(&cfg.Reddit),
		topicEngine,
		classifier,
		export.NewExporter(cfg.Pipeline.OutputFile),
	)

	return p.Run(ctx, pipeline.Request{
		Ticker:    ticker,
		Subreddit: strings.TrimPrefix(subreddit, "r/"),
		Keywords:  splitKeywords(keywords),
		Window:    window,
	})
}

// parseWindow builds the analysis window, defaulting to the last 15 days
func parseWindow(fromDate, toDate string) (models.TimeWindow, error) {
	end := time.Now()
	if toDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", toDate, time.Local)
		if err != nil {
			return models.TimeWindow{}, fmt.Errorf("invalid end date: %w", err)
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -15)
	if fromDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", fromDate, time.Local)
		if err != nil {
			return models.TimeWindow{}, fmt.Errorf("invalid start date: %w", err)
		}
		start = parsed
	}

	return models.NewTimeWindow(start, end)
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		keywords = append(keywords, strings.TrimSpace(p))
	}
	return keywords
}
