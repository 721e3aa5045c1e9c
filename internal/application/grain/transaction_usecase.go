package grain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/inventory"
)

// TransactionUseCase ventas al contado y mermas.
type TransactionUseCase struct {
	mutator *lotMutator
}

// NewTransactionUseCase construye el caso de uso.
func NewTransactionUseCase(d Deps) *TransactionUseCase {
	return &TransactionUseCase{mutator: newLotMutator(d.withDefaults())}
}

// RecordSale vende contra el disponible. Si la cantidad supera AvailableQuantity se rechaza
// con InsufficientInventoryError y el lote no cambia.
func (uc *TransactionUseCase) RecordSale(ctx context.Context, in dto.SaleInput) (*dto.LotResponse, *dto.SaleResponse, error) {
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}
	var sale *entity.Sale
	ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: in.LotID}
	lot, err := uc.mutator.mutate(ctx, "record_sale", ref, func(lot *entity.InventoryLot, now time.Time) error {
		sale = &entity.Sale{
			ID:           uuid.New().String(),
			Date:         dateOr(in.Date, now),
			Buyer:        in.Buyer,
			Quantity:     in.Quantity,
			PricePerUnit: in.PricePerUnit,
			Deductions:   toDeductions(in.Deductions),
			Source:       entity.SaleSourceSpot,
			CreatedBy:    in.UserID,
		}
		return inventory.ApplySale(lot, sale)
	})
	if err != nil {
		return nil, nil, err
	}
	return toLotResponse(lot), toSaleResponse(sale), nil
}

// RecordShrinkage registra una pérdida física; no mira el disponible.
func (uc *TransactionUseCase) RecordShrinkage(ctx context.Context, in dto.ShrinkageInput) (*dto.LotResponse, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: in.LotID}
	lot, err := uc.mutator.mutate(ctx, "record_shrinkage", ref, func(lot *entity.InventoryLot, now time.Time) error {
		return inventory.ApplyShrinkage(lot, &entity.ShrinkageEvent{
			ID:        uuid.New().String(),
			Date:      dateOr(in.Date, now),
			Quantity:  in.Quantity,
			Reason:    in.Reason,
			CreatedBy: in.UserID,
		})
	})
	if err != nil {
		return nil, err
	}
	return toLotResponse(lot), nil
}

func toSaleResponse(s *entity.Sale) *dto.SaleResponse {
	if s == nil {
		return nil
	}
	return &dto.SaleResponse{
		ID:              s.ID,
		Date:            s.Date,
		Buyer:           s.Buyer,
		Quantity:        s.Quantity,
		PricePerUnit:    s.PricePerUnit,
		GrossRevenue:    s.GrossRevenue,
		TotalDeductions: s.TotalDeductions,
		NetRevenue:      s.NetRevenue,
		Source:          s.Source,
		ContractID:      s.ContractID,
		TierIndex:       s.TierIndex,
	}
}
