package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/selivandex/coinpulse/internal/adapters/config"
	"github.com/selivandex/coinpulse/internal/adapters/price"
	"github.com/selivandex/coinpulse/pkg/logger"
)

// Prints the provider's selectable asset catalog, one "{id} ({symbol})"
// entry per line, for callers that build selection lists.
func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.LoadCoinGecko()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init("error", ""); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	provider := price.NewCoinGeckoProvider(cfg)

	coins, err := provider.CoinsList(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch coin list: %w", err)
	}

	for _, coin := range coins {
		fmt.Println(coin.DisplayName())
	}

	return nil
}
