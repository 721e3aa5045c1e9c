package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TriggerType condición que dispara un tramo.
type TriggerType string

const (
	TriggerPriceReaches TriggerType = "price_reaches"  // precio >= tramo
	TriggerPriceFallsTo TriggerType = "price_falls_to" // precio <= tramo
	TriggerDateReaches  TriggerType = "date_reaches"   // fecha >= TriggerDate
)

// Valid indica si el tipo de disparador es conocido.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerPriceReaches, TriggerPriceFallsTo, TriggerDateReaches:
		return true
	}
	return false
}

// Tier un tramo de la escala: vender PercentToSell del lote al llegar a PricePerUnit.
// BushelsToSell se congela al configurar la escala y no se recalcula con ventas posteriores.
type Tier struct {
	PricePerUnit    decimal.Decimal
	PercentToSell   decimal.Decimal
	BushelsToSell   decimal.Decimal
	TriggerType     TriggerType
	TriggerDate     *time.Time
	Executed        bool
	ExecutedPrice   decimal.Decimal
	ExecutedBushels decimal.Decimal
	ExecutedDate    *time.Time
	SaleID          string
}

// SlidingScaleConfig plan de venta escalonada de un lote.
type SlidingScaleConfig struct {
	MinimumPrice decimal.Decimal
	TargetPrice  decimal.Decimal
	Active       bool
	BaseQuantity decimal.Decimal // CurrentQuantity al momento de configurar
	ConfiguredAt time.Time
	ConfiguredBy string
	Tiers        []Tier
}

// PendingTiers cuenta tramos no ejecutados.
func (s *SlidingScaleConfig) PendingTiers() int {
	n := 0
	for _, t := range s.Tiers {
		if !t.Executed {
			n++
		}
	}
	return n
}

// AnyExecuted indica si algún tramo ya se ejecutó.
func (s *SlidingScaleConfig) AnyExecuted() bool {
	return s.PendingTiers() < len(s.Tiers)
}

// Clone copia profunda.
func (s *SlidingScaleConfig) Clone() *SlidingScaleConfig {
	c := *s
	c.Tiers = make([]Tier, len(s.Tiers))
	for i, t := range s.Tiers {
		c.Tiers[i] = t
		if t.TriggerDate != nil {
			d := *t.TriggerDate
			c.Tiers[i].TriggerDate = &d
		}
		if t.ExecutedDate != nil {
			d := *t.ExecutedDate
			c.Tiers[i].ExecutedDate = &d
		}
	}
	return &c
}
