package grain

import (
	"context"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/inventory"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
)

// ReportingUseCase proyecciones y resúmenes (lecturas sin lock).
type ReportingUseCase struct {
	repo repository.LotRepository
}

// NewReportingUseCase construye el caso de uso.
func NewReportingUseCase(d Deps) *ReportingUseCase {
	return &ReportingUseCase{repo: d.Repo}
}

// Project proyecta ingresos de los lotes de granja/año para cada escenario de precios.
func (uc *ReportingUseCase) Project(ctx context.Context, q dto.ProjectionQuery) ([]dto.ScenarioProjectionDTO, error) {
	if err := validateInput(q); err != nil {
		return nil, err
	}
	scenarios := make([]inventory.Scenario, 0, len(q.Scenarios))
	for _, s := range q.Scenarios {
		for crop, p := range s.Prices {
			if p.IsNegative() {
				return nil, domain.NewValidationError("prices", "precio negativo para "+crop)
			}
		}
		scenarios = append(scenarios, inventory.Scenario{Name: s.Name, Prices: s.Prices})
	}
	lots, err := uc.repo.List(ctx, repository.LotFilter{FarmID: q.FarmID, Year: q.Year})
	if err != nil {
		return nil, err
	}
	projections := inventory.Project(lots, scenarios)
	out := make([]dto.ScenarioProjectionDTO, 0, len(projections))
	for _, p := range projections {
		item := dto.ScenarioProjectionDTO{
			Scenario:       p.Scenario,
			ByCrop:         make([]dto.CropProjectionDTO, 0, len(p.ByCrop)),
			TotalRevenue:   p.TotalRevenue,
			TotalCostBasis: p.TotalCostBasis,
			TotalMargin:    p.TotalMargin,
		}
		for _, c := range p.ByCrop {
			item.ByCrop = append(item.ByCrop, dto.CropProjectionDTO{
				CropType:       c.CropType,
				Quantity:       c.Quantity,
				Price:          c.Price,
				Priced:         c.Priced,
				Revenue:        c.Revenue,
				CostBasisValue: c.CostBasisValue,
				Margin:         c.Margin,
			})
		}
		out = append(out, item)
	}
	return out, nil
}

// Summarize resumen de inventario de granja/año.
func (uc *ReportingUseCase) Summarize(ctx context.Context, farmID string, year int) (*dto.InventorySummaryDTO, error) {
	if farmID == "" {
		return nil, domain.NewValidationError("farm_id", "es requerido")
	}
	if year <= 0 {
		return nil, domain.NewValidationError("year", "es requerido")
	}
	lots, err := uc.repo.List(ctx, repository.LotFilter{FarmID: farmID, Year: year})
	if err != nil {
		return nil, err
	}
	s := inventory.Summarize(lots)
	return &dto.InventorySummaryDTO{
		FarmID:                farmID,
		Year:                  year,
		TotalLots:             s.TotalLots,
		ActiveLots:            s.ActiveLots,
		TotalCurrentQuantity:  s.TotalCurrentQuantity,
		TotalReservedQuantity: s.TotalReservedQuantity,
		TotalAvailable:        s.TotalAvailable,
		TotalCostBasisValue:   s.TotalCostBasisValue,
		RealizedNetRevenue:    s.RealizedNetRevenue,
		ByCrop:                toGroupTotals(s.ByCrop),
		ByLocation:            toGroupTotals(s.ByLocation),
		ActiveSlidingScales:   s.ActiveSlidingScales,
		OpenContracts:         s.OpenContracts,
	}, nil
}
