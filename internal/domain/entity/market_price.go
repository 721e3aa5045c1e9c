package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMarketPriceWindow observaciones que conserva cada lote si no se configura otra cosa.
const DefaultMarketPriceWindow = 30

// MarketPriceObservation precio observado (manual o de un feed) para un cultivo.
type MarketPriceObservation struct {
	Date   time.Time
	Price  decimal.Decimal
	Source string
}

// FieldRef datos de referencia de un campo, provistos por el registro de campos.
type FieldRef struct {
	ID     string
	FarmID string
	Name   string
	Acres  decimal.Decimal
}
