package export

import (
	"os"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

// Exportable is a tagged-variant result table. The producer selects the
// variant, the exporter never inspects runtime types to decide behavior.
type Exportable struct {
	kind      exportKind
	sentiment []models.SentimentRecord
	prices    []models.PricePoint
}

type exportKind int

const (
	kindMerged exportKind = iota
	kindNumericOnly
)

// Merged builds the sentiment-plus-price variant
func Merged(records []models.SentimentRecord, prices []models.PricePoint) Exportable {
	return Exportable{kind: kindMerged, sentiment: records, prices: prices}
}

// NumericOnly builds the price-table-only variant
func NumericOnly(prices []models.PricePoint) Exportable {
	return Exportable{kind: kindNumericOnly, prices: prices}
}

// priceRow is one line of the numeric-only export
type priceRow struct {
	CoinTicker string          `csv:"Coin Ticker"`
	Timestamp  string          `csv:"Timestamp"`
	Price      decimal.Decimal `csv:"Price"`
	Date       string          `csv:"Date"`
	Time       string          `csv:"Time"`
}

// Exporter writes one result table to a fixed filename, overwriting any
// previous run's output
type Exporter struct {
	outputFile string
}

// NewExporter creates new CSV exporter
func NewExporter(outputFile string) *Exporter {
	return &Exporter{outputFile: outputFile}
}

// Export derives all columns and writes the CSV. Nothing touches the output
// file until every derivation has succeeded, so a failed run never leaves
// partial output behind.
func (e *Exporter) Export(x Exportable) error {
	switch x.kind {
	case kindMerged:
		rows, err := merge(x.sentiment, x.prices)
		if err != nil {
			return err
		}
		return e.write(&rows, len(rows))

	case kindNumericOnly:
		rows := make([]priceRow, len(x.prices))
		for i, p := range x.prices {
			rows[i] = priceRow{
				CoinTicker: p.Ticker,
				Timestamp:  p.Timestamp.Format(timestampLayout),
				Price:      p.Price,
				Date:       p.Date,
				Time:       p.Time,
			}
		}
		return e.write(&rows, len(rows))
	}

	return pipeerrors.NewExportError("variant selection", pipeerrors.ErrEmptyInput)
}

func (e *Exporter) write(rows interface{}, count int) error {
	file, err := os.Create(e.outputFile)
	if err != nil {
		return pipeerrors.NewExportError("file create", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(rows, file); err != nil {
		return pipeerrors.NewExportError("csv write", err)
	}

	logger.Info("dataset exported",
		zap.String("file", e.outputFile),
		zap.Int("rows", count),
	)

	return nil
}
