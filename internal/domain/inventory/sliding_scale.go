package inventory

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// TierSpec definición de un tramo tal como la envía el usuario.
type TierSpec struct {
	PricePerUnit  decimal.Decimal
	PercentToSell decimal.Decimal
	TriggerType   entity.TriggerType
	TriggerDate   *time.Time
}

// ScaleParams parámetros de configuración de la escala deslizante.
type ScaleParams struct {
	MinimumPrice decimal.Decimal
	TargetPrice  decimal.Decimal
	Tiers        []TierSpec
	ConfiguredBy string
	Now          time.Time
}

// ConfigureSlidingScale valida los tramos y congela BushelsToSell = CurrentQuantity × % / 100
// (truncado a 2 decimales). Si ya se ejecutó algún tramo la escala no se puede reemplazar.
func ConfigureSlidingScale(lot *entity.InventoryLot, p ScaleParams) error {
	if err := ensureOpen(lot); err != nil {
		return err
	}
	if lot.SlidingScale != nil && lot.SlidingScale.AnyExecuted() {
		return &domain.ConflictError{Reason: "la escala tiene tramos ejecutados; no se puede reconfigurar"}
	}
	if err := validateScale(p); err != nil {
		return err
	}
	cfg := &entity.SlidingScaleConfig{
		MinimumPrice: p.MinimumPrice,
		TargetPrice:  p.TargetPrice,
		Active:       true,
		BaseQuantity: lot.CurrentQuantity,
		ConfiguredAt: p.Now,
		ConfiguredBy: p.ConfiguredBy,
		Tiers:        make([]entity.Tier, 0, len(p.Tiers)),
	}
	for _, s := range p.Tiers {
		t := entity.Tier{
			PricePerUnit:  s.PricePerUnit,
			PercentToSell: s.PercentToSell,
			BushelsToSell: lot.CurrentQuantity.Mul(s.PercentToSell).Div(hundred).Truncate(2),
			TriggerType:   s.TriggerType,
		}
		if s.TriggerDate != nil {
			d := *s.TriggerDate
			t.TriggerDate = &d
		}
		cfg.Tiers = append(cfg.Tiers, t)
	}
	lot.SlidingScale = cfg
	return nil
}

func validateScale(p ScaleParams) error {
	if len(p.Tiers) == 0 {
		return &domain.ConfigurationError{Tier: -1, Reason: "se requiere al menos un tramo"}
	}
	if p.MinimumPrice.IsNegative() || p.TargetPrice.IsNegative() {
		return &domain.ConfigurationError{Tier: -1, Reason: "precios mínimo/objetivo no pueden ser negativos"}
	}
	if p.MinimumPrice.IsPositive() && p.TargetPrice.IsPositive() && p.MinimumPrice.GreaterThan(p.TargetPrice) {
		return &domain.ConfigurationError{Tier: -1, Reason: "el precio mínimo supera al objetivo"}
	}
	sum := decimal.Zero
	for i, t := range p.Tiers {
		if !t.TriggerType.Valid() {
			return &domain.ConfigurationError{Tier: i, Reason: "tipo de disparador desconocido " + strconv.Quote(string(t.TriggerType))}
		}
		if t.TriggerType == entity.TriggerDateReaches {
			if t.TriggerDate == nil || t.TriggerDate.IsZero() {
				return &domain.ConfigurationError{Tier: i, Reason: "date_reaches requiere trigger_date"}
			}
		} else if !t.PricePerUnit.IsPositive() {
			return &domain.ConfigurationError{Tier: i, Reason: "el precio debe ser mayor a cero"}
		}
		if !t.PercentToSell.IsPositive() || t.PercentToSell.GreaterThan(hundred) {
			return &domain.ConfigurationError{Tier: i, Reason: "el porcentaje debe estar en (0, 100]"}
		}
		sum = sum.Add(t.PercentToSell)
	}
	if sum.GreaterThan(hundred) {
		return &domain.ConfigurationError{Tier: -1, Reason: "los porcentajes suman " + sum.String() + "%, máximo 100%"}
	}
	return nil
}

// DeactivateSlidingScale desactiva la escala; los tramos ejecutados quedan como historial.
func DeactivateSlidingScale(lot *entity.InventoryLot) error {
	if lot.SlidingScale == nil {
		return domain.NewNotFoundError("escala deslizante", lot.ID)
	}
	lot.SlidingScale.Active = false
	return nil
}

// TierEligible evalúa un tramo contra un precio observado y una fecha.
// Un tramo ejecutado nunca es elegible.
func TierEligible(t entity.Tier, price decimal.Decimal, asOf time.Time) bool {
	if t.Executed {
		return false
	}
	switch t.TriggerType {
	case entity.TriggerPriceReaches:
		return price.GreaterThanOrEqual(t.PricePerUnit)
	case entity.TriggerPriceFallsTo:
		return price.LessThanOrEqual(t.PricePerUnit)
	case entity.TriggerDateReaches:
		return t.TriggerDate != nil && !asOf.Before(*t.TriggerDate)
	}
	return false
}

// Recommendation tramo elegible sugerido para venta.
type Recommendation struct {
	LotID             string
	FarmID            string
	Year              int
	CropType          string
	StorageLocation   string
	TierIndex         int
	TriggerType       entity.TriggerType
	TierPrice         decimal.Decimal
	ObservedPrice     decimal.Decimal
	SuggestedQuantity decimal.Decimal
	AvailableQuantity decimal.Decimal
	// Executable es false si el disponible actual ya no cubre la cantidad sugerida.
	Executable bool
}

// EvaluateLot tramos elegibles de un lote (solo lectura). Lotes cerrados o sin escala activa no aportan.
func EvaluateLot(lot *entity.InventoryLot, price decimal.Decimal, asOf time.Time) []Recommendation {
	if lot.IsClosed() || lot.SlidingScale == nil || !lot.SlidingScale.Active {
		return nil
	}
	var out []Recommendation
	for i, t := range lot.SlidingScale.Tiers {
		if !TierEligible(t, price, asOf) {
			continue
		}
		out = append(out, Recommendation{
			LotID:             lot.ID,
			FarmID:            lot.FarmID,
			Year:              lot.Year,
			CropType:          lot.CropType,
			StorageLocation:   lot.StorageLocation,
			TierIndex:         i,
			TriggerType:       t.TriggerType,
			TierPrice:         t.PricePerUnit,
			ObservedPrice:     price,
			SuggestedQuantity: t.BushelsToSell,
			AvailableQuantity: lot.AvailableQuantity,
			Executable:        t.BushelsToSell.IsPositive() && t.BushelsToSell.LessThanOrEqual(lot.AvailableQuantity),
		})
	}
	return out
}

// ExecuteTier ejecuta un tramo: registra la venta (Source = tier) y marca el tramo como ejecutado.
// sale.Quantity en cero significa "usar BushelsToSell". Un tramo ya ejecutado devuelve conflicto
// y nunca genera una segunda venta.
func ExecuteTier(lot *entity.InventoryLot, tierIndex int, sale *entity.Sale, now time.Time) error {
	if lot.SlidingScale == nil {
		return domain.NewNotFoundError("escala deslizante", lot.ID)
	}
	if tierIndex < 0 || tierIndex >= len(lot.SlidingScale.Tiers) {
		return domain.NewNotFoundError("tramo", strconv.Itoa(tierIndex))
	}
	tier := &lot.SlidingScale.Tiers[tierIndex]
	if tier.Executed {
		return &domain.ConflictError{Reason: "tramo " + strconv.Itoa(tierIndex), Err: domain.ErrTierAlreadyExecuted}
	}
	if !lot.SlidingScale.Active {
		return &domain.ConflictError{Reason: "la escala deslizante está inactiva"}
	}
	if sale.Quantity.IsZero() {
		sale.Quantity = tier.BushelsToSell
	}
	idx := tierIndex
	sale.Source = entity.SaleSourceTier
	sale.TierIndex = &idx
	if err := ApplySale(lot, sale); err != nil {
		return err
	}
	tier.Executed = true
	tier.ExecutedPrice = sale.PricePerUnit
	tier.ExecutedBushels = sale.Quantity
	tier.ExecutedDate = &now
	tier.SaleID = sale.ID
	return nil
}
