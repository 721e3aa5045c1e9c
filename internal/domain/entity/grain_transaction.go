package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Origen de una venta.
const (
	SaleSourceSpot     = "spot"
	SaleSourceTier     = "tier"
	SaleSourceContract = "contract"
)

// Deduction descuento aplicado a una venta (flete, secado, checkoff...).
type Deduction struct {
	Reason string
	Amount decimal.Decimal
}

// Sale registro inmutable de venta.
// NetRevenue = GrossRevenue - TotalDeductions.
type Sale struct {
	ID              string
	Date            time.Time
	Buyer           string
	Quantity        decimal.Decimal
	PricePerUnit    decimal.Decimal
	Deductions      []Deduction
	GrossRevenue    decimal.Decimal
	TotalDeductions decimal.Decimal
	NetRevenue      decimal.Decimal
	Source          string
	ContractID      string
	TierIndex       *int
	CreatedBy       string
}

// ShrinkageEvent pérdida física irrecuperable. AppliedQuantity puede ser menor que Quantity
// si el lote tenía menos existencia que la pérdida reportada.
type ShrinkageEvent struct {
	ID              string
	Date            time.Time
	Quantity        decimal.Decimal
	AppliedQuantity decimal.Decimal
	Reason          string
	CreatedBy       string
}

// Addition entrada de grano al lote.
type Addition struct {
	ID          string
	Date        time.Time
	Source      string
	Quantity    decimal.Decimal
	CostPerUnit decimal.Decimal
	CreatedBy   string
}

func cloneSales(in []Sale) []Sale {
	if in == nil {
		return nil
	}
	out := make([]Sale, len(in))
	for i, s := range in {
		out[i] = s
		out[i].Deductions = append([]Deduction(nil), s.Deductions...)
		if s.TierIndex != nil {
			idx := *s.TierIndex
			out[i].TierIndex = &idx
		}
	}
	return out
}
