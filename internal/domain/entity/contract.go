package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de contrato.
const (
	ContractTypeForward       = "forward"
	ContractTypeBasis         = "basis"
	ContractTypeHedgeToArrive = "hedge_to_arrive"
	ContractTypeMinPrice      = "min_price"
	ContractTypeDeferredPrice = "deferred_price"
)

// ContractStatus estado de un contrato.
type ContractStatus string

const (
	ContractStatusOpen            ContractStatus = "open"
	ContractStatusPartiallyFilled ContractStatus = "partially_filled"
	ContractStatusFilled          ContractStatus = "filled"
	ContractStatusCancelled       ContractStatus = "cancelled"
	ContractStatusExpired         ContractStatus = "expired"
)

// IsOpen indica que el contrato aún reserva inventario.
func (s ContractStatus) IsOpen() bool {
	return s == ContractStatusOpen || s == ContractStatusPartiallyFilled
}

// Contract compromiso de entrega futura que reserva cantidad del lote.
type Contract struct {
	ID                 string
	Type               string
	Buyer              string
	ContractedQuantity decimal.Decimal
	RemainingQuantity  decimal.Decimal
	Price              decimal.Decimal // cero si el precio no está fijado (basis, deferred)
	DeliveryStart      time.Time
	DeliveryEnd        time.Time
	Status             ContractStatus
	Notes              string
	Deliveries         []ContractDelivery
	CreatedAt          time.Time
	ClosedAt           *time.Time
}

// ContractDelivery entrega física contra un contrato; SaleID apunta a la venta generada.
type ContractDelivery struct {
	Date     time.Time
	Quantity decimal.Decimal
	SaleID   string
}

func cloneContracts(in []Contract) []Contract {
	if in == nil {
		return nil
	}
	out := make([]Contract, len(in))
	for i, c := range in {
		out[i] = c
		out[i].Deliveries = append([]ContractDelivery(nil), c.Deliveries...)
		if c.ClosedAt != nil {
			t := *c.ClosedAt
			out[i].ClosedAt = &t
		}
	}
	return out
}
