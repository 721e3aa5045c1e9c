package grain

import (
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/inventory"
)

func toQuality(q dto.QualityDTO) entity.Quality {
	return entity.Quality{
		MoisturePct:        q.MoisturePct,
		TestWeight:         q.TestWeight,
		ForeignMaterialPct: q.ForeignMaterialPct,
		DamagePct:          q.DamagePct,
		Grade:              q.Grade,
		ProteinPct:         q.ProteinPct,
		OilPct:             q.OilPct,
	}
}

func toCostBasis(c dto.CostBasisDTO) entity.CostBasis {
	return entity.CostBasis{
		ProductionCostPerUnit: c.ProductionCostPerUnit,
		StorageCostPerUnit:    c.StorageCostPerUnit,
		DryingCostPerUnit:     c.DryingCostPerUnit,
	}
}

func toDeductions(in []dto.DeductionDTO) []entity.Deduction {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.Deduction, 0, len(in))
	for _, d := range in {
		out = append(out, entity.Deduction{Reason: d.Reason, Amount: d.Amount})
	}
	return out
}

func toLotResponse(l *entity.InventoryLot) *dto.LotResponse {
	if l == nil {
		return nil
	}
	r := &dto.LotResponse{
		ID:                l.ID,
		FarmID:            l.FarmID,
		Year:              l.Year,
		CropType:          l.CropType,
		StorageLocation:   l.StorageLocation,
		FieldID:           l.FieldID,
		Unit:              l.Unit,
		InitialQuantity:   l.InitialQuantity,
		CurrentQuantity:   l.CurrentQuantity,
		ReservedQuantity:  l.ReservedQuantity,
		AvailableQuantity: l.AvailableQuantity,
		Quality: dto.QualityDTO{
			MoisturePct:        l.Quality.MoisturePct,
			TestWeight:         l.Quality.TestWeight,
			ForeignMaterialPct: l.Quality.ForeignMaterialPct,
			DamagePct:          l.Quality.DamagePct,
			Grade:              l.Quality.Grade,
			ProteinPct:         l.Quality.ProteinPct,
			OilPct:             l.Quality.OilPct,
		},
		CostBasis: dto.CostBasisDTO{
			ProductionCostPerUnit: l.CostBasis.ProductionCostPerUnit,
			StorageCostPerUnit:    l.CostBasis.StorageCostPerUnit,
			DryingCostPerUnit:     l.CostBasis.DryingCostPerUnit,
		},
		CostBasisValue: l.CostBasisValue(),
		Status:         string(l.Status),
		Notes:          l.Notes,
		Version:        l.Version,
		CloseReason:    l.CloseReason,
		ClosedAt:       l.ClosedAt,
		CreatedAt:      l.CreatedAt,
		CreatedBy:      l.CreatedBy,
		UpdatedAt:      l.UpdatedAt,
		UpdatedBy:      l.UpdatedBy,
		Contracts:      make([]dto.ContractResponse, 0, len(l.Contracts)),
		Sales:          make([]dto.SaleResponse, 0, len(l.Sales)),
		Shrinkage:      make([]dto.ShrinkageResponse, 0, len(l.Shrinkage)),
		Additions:      make([]dto.AdditionResponse, 0, len(l.Additions)),
		MarketPrices:   make([]dto.MarketPriceResponse, 0, len(l.MarketPrices)),
	}
	for _, c := range l.Contracts {
		r.Contracts = append(r.Contracts, dto.ContractResponse{
			ID:                 c.ID,
			Type:               c.Type,
			Buyer:              c.Buyer,
			ContractedQuantity: c.ContractedQuantity,
			RemainingQuantity:  c.RemainingQuantity,
			Price:              c.Price,
			DeliveryStart:      c.DeliveryStart,
			DeliveryEnd:        c.DeliveryEnd,
			Status:             string(c.Status),
			Deliveries:         len(c.Deliveries),
		})
	}
	for i := range l.Sales {
		r.Sales = append(r.Sales, *toSaleResponse(&l.Sales[i]))
	}
	for _, s := range l.Shrinkage {
		r.Shrinkage = append(r.Shrinkage, dto.ShrinkageResponse{
			ID: s.ID, Date: s.Date, Quantity: s.Quantity, AppliedQuantity: s.AppliedQuantity, Reason: s.Reason,
		})
	}
	for _, a := range l.Additions {
		r.Additions = append(r.Additions, dto.AdditionResponse{
			ID: a.ID, Date: a.Date, Source: a.Source, Quantity: a.Quantity, CostPerUnit: a.CostPerUnit,
		})
	}
	for _, p := range l.MarketPrices {
		r.MarketPrices = append(r.MarketPrices, dto.MarketPriceResponse{Date: p.Date, Price: p.Price, Source: p.Source})
	}
	if sc := l.SlidingScale; sc != nil {
		out := &dto.SlidingScaleResponse{
			MinimumPrice: sc.MinimumPrice,
			TargetPrice:  sc.TargetPrice,
			Active:       sc.Active,
			BaseQuantity: sc.BaseQuantity,
			ConfiguredAt: sc.ConfiguredAt,
			Tiers:        make([]dto.TierResponse, 0, len(sc.Tiers)),
		}
		for i, t := range sc.Tiers {
			out.Tiers = append(out.Tiers, dto.TierResponse{
				Index:           i,
				PricePerUnit:    t.PricePerUnit,
				PercentToSell:   t.PercentToSell,
				BushelsToSell:   t.BushelsToSell,
				TriggerType:     string(t.TriggerType),
				TriggerDate:     t.TriggerDate,
				Executed:        t.Executed,
				ExecutedPrice:   t.ExecutedPrice,
				ExecutedBushels: t.ExecutedBushels,
				ExecutedDate:    t.ExecutedDate,
			})
		}
		r.SlidingScale = out
	}
	return r
}

func toRecommendationDTOs(recs []inventory.Recommendation) []dto.TriggerRecommendationDTO {
	out := make([]dto.TriggerRecommendationDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, dto.TriggerRecommendationDTO{
			LotID:             r.LotID,
			Year:              r.Year,
			CropType:          r.CropType,
			StorageLocation:   r.StorageLocation,
			TierIndex:         r.TierIndex,
			TriggerType:       string(r.TriggerType),
			TierPrice:         r.TierPrice,
			ObservedPrice:     r.ObservedPrice,
			SuggestedQuantity: r.SuggestedQuantity,
			AvailableQuantity: r.AvailableQuantity,
			Executable:        r.Executable,
		})
	}
	return out
}

func toGroupTotals(in []inventory.GroupTotal) []dto.GroupTotalDTO {
	out := make([]dto.GroupTotalDTO, 0, len(in))
	for _, g := range in {
		out = append(out, dto.GroupTotalDTO{Key: g.Key, Lots: g.Lots, Quantity: g.Quantity})
	}
	return out
}
