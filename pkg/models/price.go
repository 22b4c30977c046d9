package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Layouts used when splitting a localized timestamp into separate date and
// time columns. The rendering deliberately carries no timezone offset so the
// two columns always reconstruct the source timestamp.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// PricePoint is one sample of an asset's price series, localized to the host
// timezone with the timestamp split into display date and time columns
type PricePoint struct {
	Ticker    string
	Timestamp time.Time
	Date      string
	Time      string
	Price     decimal.Decimal
}

// NewPricePoint builds a price point from a localized timestamp
func NewPricePoint(ticker string, ts time.Time, price decimal.Decimal) PricePoint {
	return PricePoint{
		Ticker:    ticker,
		Timestamp: ts,
		Date:      ts.Format(DateLayout),
		Time:      ts.Format(TimeLayout),
		Price:     price,
	}
}
