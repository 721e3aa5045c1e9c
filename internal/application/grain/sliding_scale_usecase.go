package grain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/inventory"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

// SlidingScaleUseCase configuración, evaluación y ejecución de la escala deslizante.
type SlidingScaleUseCase struct {
	repo    repository.LotRepository
	mutator *lotMutator
	window  int
	clock   func() time.Time
	log     *logger.Logger
}

// NewSlidingScaleUseCase construye el caso de uso.
func NewSlidingScaleUseCase(d Deps) *SlidingScaleUseCase {
	d = d.withDefaults()
	return &SlidingScaleUseCase{
		repo:    d.Repo,
		mutator: newLotMutator(d),
		window:  d.MarketPriceWindow,
		clock:   d.Clock,
		log:     d.Logger,
	}
}

// ConfigureSlidingScale valida los tramos y congela BushelsToSell con la existencia actual.
func (uc *SlidingScaleUseCase) ConfigureSlidingScale(ctx context.Context, in dto.SlidingScaleInput) (*dto.LotResponse, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	specs := make([]inventory.TierSpec, 0, len(in.Tiers))
	for _, t := range in.Tiers {
		spec := inventory.TierSpec{
			PricePerUnit:  t.PricePerUnit,
			PercentToSell: t.PercentToSell,
			TriggerType:   entity.TriggerType(t.TriggerType),
		}
		if t.TriggerDate != nil {
			d := t.TriggerDate.UTC()
			spec.TriggerDate = &d
		}
		specs = append(specs, spec)
	}
	ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: in.LotID}
	lot, err := uc.mutator.mutate(ctx, "configure_sliding_scale", ref, func(lot *entity.InventoryLot, now time.Time) error {
		return inventory.ConfigureSlidingScale(lot, inventory.ScaleParams{
			MinimumPrice: in.MinimumPrice,
			TargetPrice:  in.TargetPrice,
			Tiers:        specs,
			ConfiguredBy: in.UserID,
			Now:          now,
		})
	})
	if err != nil {
		return nil, err
	}
	return toLotResponse(lot), nil
}

// DeactivateSlidingScale apaga la escala del lote.
func (uc *SlidingScaleUseCase) DeactivateSlidingScale(ctx context.Context, farmID, userID, lotID string) (*dto.LotResponse, error) {
	ref := lotRef{FarmID: farmID, UserID: userID, LotID: lotID}
	lot, err := uc.mutator.mutate(ctx, "deactivate_sliding_scale", ref, func(lot *entity.InventoryLot, _ time.Time) error {
		return inventory.DeactivateSlidingScale(lot)
	})
	if err != nil {
		return nil, err
	}
	return toLotResponse(lot), nil
}

// CheckTriggers solo lectura: tramos elegibles de los lotes activos del cultivo para el precio dado.
func (uc *SlidingScaleUseCase) CheckTriggers(ctx context.Context, q dto.TriggerQuery) ([]dto.TriggerRecommendationDTO, error) {
	if err := validateInput(q); err != nil {
		return nil, err
	}
	if !q.Price.IsPositive() {
		return nil, domain.NewValidationError("price", "debe ser mayor a cero")
	}
	asOf := dateOr(q.AsOf, uc.clock())
	lots, err := uc.activeLots(ctx, q.FarmID, q.CropType)
	if err != nil {
		return nil, err
	}
	var recs []inventory.Recommendation
	for _, lot := range lots {
		recs = append(recs, inventory.EvaluateLot(lot, q.Price, asOf)...)
	}
	return toRecommendationDTOs(recs), nil
}

// ExecuteTier ejecuta un tramo dentro de la sección crítica del lote. Un tramo ya ejecutado
// devuelve ConflictError y no genera una segunda venta.
func (uc *SlidingScaleUseCase) ExecuteTier(ctx context.Context, in dto.ExecuteTierInput) (*dto.LotResponse, *dto.SaleResponse, error) {
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}
	var sale *entity.Sale
	ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: in.LotID}
	lot, err := uc.mutator.mutate(ctx, "execute_tier", ref, func(lot *entity.InventoryLot, now time.Time) error {
		sale = &entity.Sale{
			ID:           uuid.New().String(),
			Date:         now,
			Buyer:        in.Buyer,
			Quantity:     in.ExecutionQuantity,
			PricePerUnit: in.ExecutionPrice,
			Deductions:   toDeductions(in.Deductions),
			CreatedBy:    in.UserID,
		}
		return inventory.ExecuteTier(lot, in.TierIndex, sale, now)
	})
	if err != nil {
		return nil, nil, err
	}
	return toLotResponse(lot), toSaleResponse(sale), nil
}

// SubmitMarketPrice registra el precio en cada lote activo del cultivo (cada uno bajo su lock)
// y devuelve los tramos que ese precio vuelve elegibles. Un lote que falla no detiene al resto;
// los errores se devuelven juntos.
func (uc *SlidingScaleUseCase) SubmitMarketPrice(ctx context.Context, in dto.MarketPriceInput) (*dto.MarketPriceResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.CropType == "" {
		return nil, domain.NewValidationError("crop_type", "es requerido")
	}
	if !in.Price.IsPositive() {
		return nil, domain.NewValidationError("price", "debe ser mayor a cero")
	}
	lots, err := uc.activeLots(ctx, in.FarmID, in.CropType)
	if err != nil {
		return nil, err
	}
	res := &dto.MarketPriceResult{Recommendations: []dto.TriggerRecommendationDTO{}}
	var errs []error
	for _, l := range lots {
		var asOf time.Time
		ref := lotRef{FarmID: in.FarmID, UserID: in.UserID, LotID: l.ID}
		updated, err := uc.mutator.mutate(ctx, "submit_market_price", ref, func(lot *entity.InventoryLot, now time.Time) error {
			asOf = dateOr(in.Date, now)
			return inventory.AppendMarketPrice(lot, entity.MarketPriceObservation{
				Date: asOf, Price: in.Price, Source: in.Source,
			}, uc.window)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res.LotsUpdated++
		res.Recommendations = append(res.Recommendations,
			toRecommendationDTOs(inventory.EvaluateLot(updated, in.Price, asOf))...)
	}
	return res, errors.Join(errs...)
}

// SweepResult resultado de un barrido de disparadores por fecha.
type SweepResult struct {
	Due      []dto.TriggerRecommendationDTO
	Executed int
	Skipped  int
}

// SweepDateTriggers recorre todos los lotes activos buscando tramos date_reaches vencidos a asOf.
// Con autoExecute ejecuta cada tramo al último precio observado del lote; sin precio observado
// o sin disponible suficiente el tramo se omite y queda pendiente.
func (uc *SlidingScaleUseCase) SweepDateTriggers(ctx context.Context, asOf time.Time, autoExecute bool) (*SweepResult, error) {
	lots, err := uc.repo.List(ctx, repository.LotFilter{Statuses: []entity.LotStatus{entity.LotStatusActive}})
	if err != nil {
		return nil, err
	}
	res := &SweepResult{Due: []dto.TriggerRecommendationDTO{}}
	var errs []error
	for _, lot := range lots {
		if !lot.HasActiveSlidingScale() {
			continue
		}
		price := decimal.Zero
		if p := lot.LatestPrice(); p != nil {
			price = p.Price
		}
		for _, rec := range inventory.EvaluateLot(lot, price, asOf) {
			if rec.TriggerType != entity.TriggerDateReaches {
				continue
			}
			res.Due = append(res.Due, toRecommendationDTOs([]inventory.Recommendation{rec})...)
			uc.log.Info().
				Str("lot_id", rec.LotID).
				Str("farm_id", rec.FarmID).
				Int("tier", rec.TierIndex).
				Str("suggested", rec.SuggestedQuantity.String()).
				Msg("tramo por fecha vencido")
			if !autoExecute {
				continue
			}
			if !price.IsPositive() || !rec.Executable {
				res.Skipped++
				uc.log.Warn().Str("lot_id", rec.LotID).Int("tier", rec.TierIndex).
					Msg("tramo por fecha sin precio observado o sin disponible; queda pendiente")
				continue
			}
			_, _, err := uc.ExecuteTier(ctx, dto.ExecuteTierInput{
				FarmID:         rec.FarmID,
				UserID:         systemUser,
				LotID:          rec.LotID,
				TierIndex:      rec.TierIndex,
				ExecutionPrice: price,
			})
			if err != nil {
				// otro proceso pudo ejecutarlo entre la lectura y el lock
				if errors.Is(err, domain.ErrTierAlreadyExecuted) {
					continue
				}
				errs = append(errs, err)
				continue
			}
			res.Executed++
		}
	}
	return res, errors.Join(errs...)
}

// activeLots lotes activos de una granja y cultivo.
func (uc *SlidingScaleUseCase) activeLots(ctx context.Context, farmID, cropType string) ([]*entity.InventoryLot, error) {
	return uc.repo.List(ctx, repository.LotFilter{
		FarmID:   farmID,
		CropType: inventory.NormalizeCropType(cropType),
		Statuses: []entity.LotStatus{entity.LotStatusActive},
	})
}
