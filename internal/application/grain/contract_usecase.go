package grain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/inventory"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

// ContractUseCase compromisos de entrega futura: reservan cantidad del lote.
type ContractUseCase struct {
	repo    repository.LotRepository
	mutator *lotMutator
	log     *logger.Logger
}

// NewContractUseCase construye el caso de uso.
func NewContractUseCase(d Deps) *ContractUseCase {
	d = d.withDefaults()
	return &ContractUseCase{repo: d.Repo, mutator: newLotMutator(d), log: d.Logger}
}

// AddContract reserva ContractedQuantity del disponible. Devuelve el lote y el id del contrato.
func (uc *ContractUseCase) AddContract(ctx context.Context, in dto.ContractInput) (*dto.LotResponse, string, error) {
	if err := validateInput(in); err != nil {
		return nil, "", err
	}
	contractID := uuid.New().String()
	ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: in.LotID}
	lot, err := uc.mutator.mutate(ctx, "add_contract", ref, func(lot *entity.InventoryLot, now time.Time) error {
		return inventory.ReserveContract(lot, entity.Contract{
			ID:                 contractID,
			Type:               in.Type,
			Buyer:              in.Buyer,
			ContractedQuantity: in.ContractedQuantity,
			Price:              in.Price,
			DeliveryStart:      in.DeliveryStart.UTC(),
			DeliveryEnd:        in.DeliveryEnd.UTC(),
			Notes:              in.Notes,
			CreatedAt:          now,
		})
	})
	if err != nil {
		return nil, "", err
	}
	return toLotResponse(lot), contractID, nil
}

// DeliverContract entrega contra un contrato: baja Remaining, Reserved y Current juntos y
// registra la venta asociada.
func (uc *ContractUseCase) DeliverContract(ctx context.Context, in dto.DeliveryInput) (*dto.LotResponse, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: in.LotID}
	lot, err := uc.mutator.mutate(ctx, "deliver_contract", ref, func(lot *entity.InventoryLot, now time.Time) error {
		sale := &entity.Sale{
			ID:           uuid.New().String(),
			Date:         dateOr(in.Date, now),
			Quantity:     in.Quantity,
			PricePerUnit: in.PricePerUnit,
			Deductions:   toDeductions(in.Deductions),
			CreatedBy:    in.UserID,
		}
		return inventory.DeliverContract(lot, in.ContractID, sale, now)
	})
	if err != nil {
		return nil, err
	}
	return toLotResponse(lot), nil
}

// CancelContract cancela un contrato abierto y libera su reserva pendiente.
func (uc *ContractUseCase) CancelContract(ctx context.Context, farmID, userID, lotID, contractID string) (*dto.LotResponse, error) {
	if contractID == "" {
		return nil, domain.NewValidationError("contract_id", "es requerido")
	}
	ref := lotRef{FarmID: farmID, UserID: userID, LotID: lotID}
	lot, err := uc.mutator.mutate(ctx, "cancel_contract", ref, func(lot *entity.InventoryLot, now time.Time) error {
		return inventory.CancelContract(lot, contractID, now)
	})
	if err != nil {
		return nil, err
	}
	return toLotResponse(lot), nil
}

// ExpireContracts vence los contratos cuya ventana de entrega terminó antes de asOf, en todos
// los lotes no cerrados. farmID vacío recorre todas las granjas (uso del scheduler).
// Devuelve la cantidad de contratos vencidos; un lote que falla no detiene el resto.
func (uc *ContractUseCase) ExpireContracts(ctx context.Context, farmID string, asOf time.Time) (int, error) {
	lots, err := uc.repo.List(ctx, repository.LotFilter{
		FarmID:   farmID,
		Statuses: []entity.LotStatus{entity.LotStatusActive, entity.LotStatusDepleted},
	})
	if err != nil {
		return 0, err
	}
	total := 0
	var firstErr error
	for _, l := range lots {
		if !hasExpiredContracts(l, asOf) {
			continue
		}
		n := 0
		ref := lotRef{FarmID: l.FarmID, UserID: systemUser, LotID: l.ID}
		_, err := uc.mutator.mutate(ctx, "expire_contracts", ref, func(lot *entity.InventoryLot, _ time.Time) error {
			n = inventory.ExpireContracts(lot, asOf)
			return nil
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	if total > 0 {
		uc.log.Info().Int("expired", total).Time("as_of", asOf).Msg("contratos vencidos")
	}
	return total, firstErr
}

// systemUser autor de las mutaciones disparadas por procesos internos.
const systemUser = "system"

func hasExpiredContracts(l *entity.InventoryLot, asOf time.Time) bool {
	for _, c := range l.Contracts {
		if c.Status.IsOpen() && !c.DeliveryEnd.IsZero() && asOf.After(c.DeliveryEnd) {
			return true
		}
	}
	return false
}
