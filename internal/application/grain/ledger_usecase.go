package grain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/inventory"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

// LedgerUseCase libro de inventario: alta de lotes, entradas, consultas y cierre.
type LedgerUseCase struct {
	txRunner TxRunner
	repo     repository.LotRepository
	fields   FieldRegistry
	mutator  *lotMutator
	window   int
	clock    func() time.Time
	log      *logger.Logger
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(d Deps) *LedgerUseCase {
	d = d.withDefaults()
	return &LedgerUseCase{
		txRunner: d.TxRunner,
		repo:     d.Repo,
		fields:   d.Fields,
		mutator:  newLotMutator(d),
		window:   d.MarketPriceWindow,
		clock:    d.Clock,
		log:      d.Logger,
	}
}

// CreateLot abre un lote: Current = Initial, Reserved = 0. Si se indica FieldID y hay
// registro de campos, el campo debe existir y pertenecer a la granja.
func (uc *LedgerUseCase) CreateLot(ctx context.Context, in dto.CreateLotInput) (*dto.LotResponse, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.FieldID != "" && uc.fields != nil {
		field, err := uc.fields.GetField(ctx, in.FarmID, in.FieldID)
		if err != nil {
			return nil, fmt.Errorf("consultar campo: %w", err)
		}
		if field == nil {
			return nil, domain.NewNotFoundError("campo", in.FieldID)
		}
		if field.FarmID != in.FarmID {
			return nil, domain.ErrForbidden
		}
	}
	now := uc.clock()
	lot, err := inventory.NewLot(inventory.NewLotParams{
		ID:              uuid.New().String(),
		FarmID:          in.FarmID,
		Year:            in.Year,
		CropType:        in.CropType,
		StorageLocation: in.StorageLocation,
		FieldID:         in.FieldID,
		Unit:            in.Unit,
		InitialQuantity: in.InitialQuantity,
		Quality:         toQuality(in.Quality),
		CostBasis:       toCostBasis(in.CostBasis),
		Notes:           in.Notes,
		CreatedBy:       in.UserID,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}
	if err := uc.txRunner.Run(ctx, func(repo repository.LotRepository) error {
		return repo.Create(ctx, lot)
	}); err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("op", "create_lot").
		Str("lot_id", lot.ID).
		Str("farm_id", lot.FarmID).
		Str("crop_type", lot.CropType).
		Str("initial", lot.InitialQuantity.String()).
		Msg("lote creado")
	return toLotResponse(lot), nil
}

// RecordAddition suma grano a un lote; reactiva un lote agotado.
func (uc *LedgerUseCase) RecordAddition(ctx context.Context, in dto.AdditionInput) (*dto.LotResponse, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: in.LotID}
	lot, err := uc.mutator.mutate(ctx, "record_addition", ref, func(lot *entity.InventoryLot, now time.Time) error {
		return inventory.ApplyAddition(lot, entity.Addition{
			ID:          uuid.New().String(),
			Date:        dateOr(in.Date, now),
			Source:      in.Source,
			Quantity:    in.Quantity,
			CostPerUnit: in.CostPerUnit,
			CreatedBy:   in.UserID,
		})
	})
	if err != nil {
		return nil, err
	}
	return toLotResponse(lot), nil
}

// GetLot devuelve el lote con sus colecciones. Lote de otra granja → ErrForbidden.
func (uc *LedgerUseCase) GetLot(ctx context.Context, farmID, lotID string) (*dto.LotResponse, error) {
	lot, err := loadLot(ctx, uc.repo, farmID, lotID)
	if err != nil {
		return nil, err
	}
	return toLotResponse(lot), nil
}

// ListLots lista los lotes de una granja con filtros opcionales y paginación.
func (uc *LedgerUseCase) ListLots(ctx context.Context, q dto.LotQuery) (*dto.LotListResponse, error) {
	q.Page.DefaultPage()
	if err := validateInput(q); err != nil {
		return nil, err
	}
	filter := repository.LotFilter{
		FarmID:          q.FarmID,
		Year:            q.Year,
		CropType:        inventory.NormalizeCropType(q.CropType),
		StorageLocation: strings.TrimSpace(q.StorageLocation),
		FieldID:         q.FieldID,
		Limit:           q.Page.Limit,
		Offset:          q.Page.Offset,
	}
	if q.Status != "" {
		filter.Statuses = []entity.LotStatus{entity.LotStatus(q.Status)}
	}
	lots, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := &dto.LotListResponse{
		Items: make([]dto.LotResponse, 0, len(lots)),
		Page:  dto.PageResponse{Limit: q.Page.Limit, Offset: q.Page.Offset},
	}
	for _, l := range lots {
		out.Items = append(out.Items, *toLotResponse(l))
	}
	return out, nil
}

// CloseLot cierre administrativo (transferred / written_off).
func (uc *LedgerUseCase) CloseLot(ctx context.Context, in dto.CloseLotInput) (*dto.LotResponse, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: in.LotID}
	lot, err := uc.mutator.mutate(ctx, "close_lot", ref, func(lot *entity.InventoryLot, now time.Time) error {
		return inventory.CloseLot(lot, entity.LotStatus(in.Status), in.Reason, now)
	})
	if err != nil {
		return nil, err
	}
	return toLotResponse(lot), nil
}

// RecordMarketPrice agrega una observación de precio a la ventana móvil de un lote.
func (uc *LedgerUseCase) RecordMarketPrice(ctx context.Context, in dto.MarketPriceInput) (*dto.LotResponse, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.LotID == "" {
		return nil, domain.NewValidationError("lot_id", "es requerido")
	}
	ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: in.LotID}
	lot, err := uc.mutator.mutate(ctx, "record_market_price", ref, func(lot *entity.InventoryLot, now time.Time) error {
		return inventory.AppendMarketPrice(lot, entity.MarketPriceObservation{
			Date: dateOr(in.Date, now), Price: in.Price, Source: in.Source,
		}, uc.window)
	})
	if err != nil {
		return nil, err
	}
	return toLotResponse(lot), nil
}

// loadLot lectura fuera de transacción con chequeo de granja.
func loadLot(ctx context.Context, repo repository.LotRepository, farmID, lotID string) (*entity.InventoryLot, error) {
	if lotID == "" {
		return nil, domain.NewValidationError("lot_id", "es requerido")
	}
	lot, err := repo.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.NewNotFoundError("lote", lotID)
	}
	if lot.FarmID != farmID {
		return nil, domain.ErrForbidden
	}
	return lot, nil
}

func dateOr(d *time.Time, def time.Time) time.Time {
	if d == nil || d.IsZero() {
		return def
	}
	return d.UTC()
}
