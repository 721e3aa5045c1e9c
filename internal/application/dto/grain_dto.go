package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// QualityDTO atributos de calidad del grano.
type QualityDTO struct {
	MoisturePct        decimal.Decimal  `json:"moisture_pct"`
	TestWeight         decimal.Decimal  `json:"test_weight"`
	ForeignMaterialPct decimal.Decimal  `json:"foreign_material_pct"`
	DamagePct          decimal.Decimal  `json:"damage_pct"`
	Grade              string           `json:"grade,omitempty" validate:"omitempty,max=20"`
	ProteinPct         *decimal.Decimal `json:"protein_pct,omitempty"`
	OilPct             *decimal.Decimal `json:"oil_pct,omitempty"`
}

// CostBasisDTO costos por unidad.
type CostBasisDTO struct {
	ProductionCostPerUnit decimal.Decimal `json:"production_cost_per_unit"`
	StorageCostPerUnit    decimal.Decimal `json:"storage_cost_per_unit"`
	DryingCostPerUnit     decimal.Decimal `json:"drying_cost_per_unit"`
}

// CreateLotInput entrada para abrir un lote de grano.
type CreateLotInput struct {
	FarmID          string          `json:"-" validate:"required"`
	UserID          string          `json:"-"`
	Year            int             `json:"year" validate:"required,min=1900,max=2200"`
	CropType        string          `json:"crop_type" validate:"required,max=50"`
	StorageLocation string          `json:"storage_location" validate:"required,max=100"`
	FieldID         string          `json:"field_id,omitempty" validate:"omitempty,max=64"`
	Unit            string          `json:"unit,omitempty" validate:"omitempty,max=10"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	Quality         QualityDTO      `json:"quality"`
	CostBasis       CostBasisDTO    `json:"cost_basis"`
	Notes           string          `json:"notes,omitempty" validate:"max=1000"`
}

// AdditionInput entrada de grano a un lote existente.
type AdditionInput struct {
	FarmID      string          `json:"-" validate:"required"`
	UserID      string          `json:"-"`
	LotID       string          `json:"lot_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	Source      string          `json:"source,omitempty" validate:"max=200"`
	Date        *time.Time      `json:"date,omitempty"`
}

// DeductionDTO descuento de una venta.
type DeductionDTO struct {
	Reason string          `json:"reason" validate:"required,max=100"`
	Amount decimal.Decimal `json:"amount"`
}

// SaleInput venta al contado contra el disponible del lote.
type SaleInput struct {
	FarmID       string          `json:"-" validate:"required"`
	UserID       string          `json:"-"`
	LotID        string          `json:"lot_id" validate:"required"`
	Buyer        string          `json:"buyer" validate:"required,max=200"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Deductions   []DeductionDTO  `json:"deductions,omitempty" validate:"dive"`
	Date         *time.Time      `json:"date,omitempty"`
}

// ShrinkageInput pérdida física del lote.
type ShrinkageInput struct {
	FarmID   string          `json:"-" validate:"required"`
	UserID   string          `json:"-"`
	LotID    string          `json:"lot_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason" validate:"required,max=200"`
	Date     *time.Time      `json:"date,omitempty"`
}

// ContractInput contrato a plazo contra un lote.
type ContractInput struct {
	FarmID             string          `json:"-" validate:"required"`
	UserID             string          `json:"-"`
	LotID              string          `json:"lot_id" validate:"required"`
	Type               string          `json:"type,omitempty" validate:"omitempty,oneof=forward basis hedge_to_arrive min_price deferred_price"`
	Buyer              string          `json:"buyer" validate:"required,max=200"`
	ContractedQuantity decimal.Decimal `json:"contracted_quantity"`
	Price              decimal.Decimal `json:"price"`
	DeliveryStart      time.Time       `json:"delivery_start"`
	DeliveryEnd        time.Time       `json:"delivery_end"`
	Notes              string          `json:"notes,omitempty" validate:"max=1000"`
}

// DeliveryInput entrega física contra un contrato.
type DeliveryInput struct {
	FarmID       string          `json:"-" validate:"required"`
	UserID       string          `json:"-"`
	LotID        string          `json:"lot_id" validate:"required"`
	ContractID   string          `json:"contract_id" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"` // cero = precio del contrato
	Deductions   []DeductionDTO  `json:"deductions,omitempty" validate:"dive"`
	Date         *time.Time      `json:"date,omitempty"`
}

// TierInput tramo de la escala deslizante.
type TierInput struct {
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	PercentToSell decimal.Decimal `json:"percent_to_sell"`
	TriggerType   string          `json:"trigger_type" validate:"required,oneof=price_reaches price_falls_to date_reaches"`
	TriggerDate   *time.Time      `json:"trigger_date,omitempty"`
}

// SlidingScaleInput configuración de la escala deslizante de un lote.
type SlidingScaleInput struct {
	FarmID       string          `json:"-" validate:"required"`
	UserID       string          `json:"-"`
	LotID        string          `json:"lot_id" validate:"required"`
	MinimumPrice decimal.Decimal `json:"minimum_price"`
	TargetPrice  decimal.Decimal `json:"target_price"`
	Tiers        []TierInput     `json:"tiers" validate:"required,min=1,dive"`
}

// ExecuteTierInput ejecución explícita de un tramo.
type ExecuteTierInput struct {
	FarmID            string          `json:"-" validate:"required"`
	UserID            string          `json:"-"`
	LotID             string          `json:"lot_id" validate:"required"`
	TierIndex         int             `json:"tier_index" validate:"min=0"`
	ExecutionPrice    decimal.Decimal `json:"execution_price"`
	ExecutionQuantity decimal.Decimal `json:"execution_quantity"` // cero = bushels_to_sell del tramo
	Buyer             string          `json:"buyer,omitempty" validate:"max=200"`
	Deductions        []DeductionDTO  `json:"deductions,omitempty" validate:"dive"`
}

// MarketPriceInput observación de precio de mercado.
type MarketPriceInput struct {
	FarmID   string          `json:"-" validate:"required"`
	UserID   string          `json:"-"`
	LotID    string          `json:"lot_id,omitempty"`
	CropType string          `json:"crop_type,omitempty" validate:"max=50"`
	Price    decimal.Decimal `json:"price"`
	Source   string          `json:"source,omitempty" validate:"max=100"`
	Date     *time.Time      `json:"date,omitempty"`
}

// CloseLotInput cierre administrativo del lote.
type CloseLotInput struct {
	FarmID string `json:"-" validate:"required"`
	UserID string `json:"-"`
	LotID  string `json:"lot_id" validate:"required"`
	Status string `json:"status" validate:"required,oneof=transferred written_off"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// LotQuery filtros de listado de lotes.
type LotQuery struct {
	FarmID          string `validate:"required"`
	Year            int    `query:"year"`
	CropType        string `query:"crop_type"`
	StorageLocation string `query:"storage_location"`
	FieldID         string `query:"field_id"`
	Status          string `query:"status" validate:"omitempty,oneof=active depleted transferred written_off"`
	Page            PageRequest
}

// TriggerQuery consulta de tramos elegibles para un cultivo y precio.
type TriggerQuery struct {
	FarmID   string          `validate:"required"`
	CropType string          `validate:"required"`
	Price    decimal.Decimal
	AsOf     *time.Time
}

// ScenarioInput escenario de precios con nombre.
type ScenarioInput struct {
	Name   string                     `json:"name" validate:"required"`
	Prices map[string]decimal.Decimal `json:"prices"`
}

// ProjectionQuery proyección de ingresos por escenarios.
type ProjectionQuery struct {
	FarmID    string          `validate:"required"`
	Year      int             `validate:"required"`
	Scenarios []ScenarioInput `validate:"required,min=1,dive"`
}

// ── Respuestas ───────────────────────────────────────────────────────────────

// ContractResponse salida de un contrato.
type ContractResponse struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	Buyer              string          `json:"buyer"`
	ContractedQuantity decimal.Decimal `json:"contracted_quantity"`
	RemainingQuantity  decimal.Decimal `json:"remaining_quantity"`
	Price              decimal.Decimal `json:"price"`
	DeliveryStart      time.Time       `json:"delivery_start"`
	DeliveryEnd        time.Time       `json:"delivery_end"`
	Status             string          `json:"status"`
	Deliveries         int             `json:"deliveries"`
}

// SaleResponse salida de una venta.
type SaleResponse struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	Buyer           string          `json:"buyer"`
	Quantity        decimal.Decimal `json:"quantity"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	GrossRevenue    decimal.Decimal `json:"gross_revenue"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	NetRevenue      decimal.Decimal `json:"net_revenue"`
	Source          string          `json:"source"`
	ContractID      string          `json:"contract_id,omitempty"`
	TierIndex       *int            `json:"tier_index,omitempty"`
}

// ShrinkageResponse salida de una merma.
type ShrinkageResponse struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	Quantity        decimal.Decimal `json:"quantity"`
	AppliedQuantity decimal.Decimal `json:"applied_quantity"`
	Reason          string          `json:"reason"`
}

// AdditionResponse salida de una entrada.
type AdditionResponse struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Source      string          `json:"source"`
	Quantity    decimal.Decimal `json:"quantity"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
}

// TierResponse salida de un tramo.
type TierResponse struct {
	Index           int             `json:"index"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	PercentToSell   decimal.Decimal `json:"percent_to_sell"`
	BushelsToSell   decimal.Decimal `json:"bushels_to_sell"`
	TriggerType     string          `json:"trigger_type"`
	TriggerDate     *time.Time      `json:"trigger_date,omitempty"`
	Executed        bool            `json:"executed"`
	ExecutedPrice   decimal.Decimal `json:"executed_price"`
	ExecutedBushels decimal.Decimal `json:"executed_bushels"`
	ExecutedDate    *time.Time      `json:"executed_date,omitempty"`
}

// SlidingScaleResponse salida de la escala deslizante.
type SlidingScaleResponse struct {
	MinimumPrice decimal.Decimal `json:"minimum_price"`
	TargetPrice  decimal.Decimal `json:"target_price"`
	Active       bool            `json:"active"`
	BaseQuantity decimal.Decimal `json:"base_quantity"`
	ConfiguredAt time.Time       `json:"configured_at"`
	Tiers        []TierResponse  `json:"tiers"`
}

// MarketPriceResponse observación de precio.
type MarketPriceResponse struct {
	Date   time.Time       `json:"date"`
	Price  decimal.Decimal `json:"price"`
	Source string          `json:"source"`
}

// LotResponse salida de un lote con sus colecciones.
type LotResponse struct {
	ID                string                `json:"id"`
	FarmID            string                `json:"farm_id"`
	Year              int                   `json:"year"`
	CropType          string                `json:"crop_type"`
	StorageLocation   string                `json:"storage_location"`
	FieldID           string                `json:"field_id,omitempty"`
	Unit              string                `json:"unit"`
	InitialQuantity   decimal.Decimal       `json:"initial_quantity"`
	CurrentQuantity   decimal.Decimal       `json:"current_quantity"`
	ReservedQuantity  decimal.Decimal       `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal       `json:"available_quantity"`
	Quality           QualityDTO            `json:"quality"`
	CostBasis         CostBasisDTO          `json:"cost_basis"`
	CostBasisValue    decimal.Decimal       `json:"cost_basis_value"`
	Status            string                `json:"status"`
	Notes             string                `json:"notes,omitempty"`
	Contracts         []ContractResponse    `json:"contracts"`
	Sales             []SaleResponse        `json:"sales"`
	Shrinkage         []ShrinkageResponse   `json:"shrinkage"`
	Additions         []AdditionResponse    `json:"additions"`
	MarketPrices      []MarketPriceResponse `json:"market_prices"`
	SlidingScale      *SlidingScaleResponse `json:"sliding_scale,omitempty"`
	Version           int64                 `json:"version"`
	CloseReason       string                `json:"close_reason,omitempty"`
	ClosedAt          *time.Time            `json:"closed_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	CreatedBy         string                `json:"created_by,omitempty"`
	UpdatedAt         time.Time             `json:"updated_at"`
	UpdatedBy         string                `json:"updated_by,omitempty"`
}

// LotListResponse lista paginada de lotes.
type LotListResponse struct {
	Items []LotResponse `json:"items"`
	Page  PageResponse  `json:"page"`
}

// TriggerRecommendationDTO tramo elegible sugerido para venta.
type TriggerRecommendationDTO struct {
	LotID             string          `json:"lot_id"`
	Year              int             `json:"year"`
	CropType          string          `json:"crop_type"`
	StorageLocation   string          `json:"storage_location"`
	TierIndex         int             `json:"tier_index"`
	TriggerType       string          `json:"trigger_type"`
	TierPrice         decimal.Decimal `json:"tier_price"`
	ObservedPrice     decimal.Decimal `json:"observed_price"`
	SuggestedQuantity decimal.Decimal `json:"suggested_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	Executable        bool            `json:"executable"`
}

// MarketPriceResult resultado de registrar un precio para un cultivo.
type MarketPriceResult struct {
	LotsUpdated     int                        `json:"lots_updated"`
	Recommendations []TriggerRecommendationDTO `json:"recommendations"`
}

// CropProjectionDTO aporte de un cultivo en un escenario.
type CropProjectionDTO struct {
	CropType       string          `json:"crop_type"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Priced         bool            `json:"priced"`
	Revenue        decimal.Decimal `json:"revenue"`
	CostBasisValue decimal.Decimal `json:"cost_basis_value"`
	Margin         decimal.Decimal `json:"margin"`
}

// ScenarioProjectionDTO resultado de un escenario.
type ScenarioProjectionDTO struct {
	Scenario       string              `json:"scenario"`
	ByCrop         []CropProjectionDTO `json:"by_crop"`
	TotalRevenue   decimal.Decimal     `json:"total_revenue"`
	TotalCostBasis decimal.Decimal     `json:"total_cost_basis"`
	TotalMargin    decimal.Decimal     `json:"total_margin"`
}

// GroupTotalDTO conteo y cantidad por grupo.
type GroupTotalDTO struct {
	Key      string          `json:"key"`
	Lots     int             `json:"lots"`
	Quantity decimal.Decimal `json:"quantity"`
}

// InventorySummaryDTO resumen de granja/año.
type InventorySummaryDTO struct {
	FarmID                string          `json:"farm_id"`
	Year                  int             `json:"year"`
	TotalLots             int             `json:"total_lots"`
	ActiveLots            int             `json:"active_lots"`
	TotalCurrentQuantity  decimal.Decimal `json:"total_current_quantity"`
	TotalReservedQuantity decimal.Decimal `json:"total_reserved_quantity"`
	TotalAvailable        decimal.Decimal `json:"total_available_quantity"`
	TotalCostBasisValue   decimal.Decimal `json:"total_cost_basis_value"`
	RealizedNetRevenue    decimal.Decimal `json:"realized_net_revenue"`
	ByCrop                []GroupTotalDTO `json:"by_crop"`
	ByLocation            []GroupTotalDTO `json:"by_location"`
	ActiveSlidingScales   int             `json:"active_sliding_scales"`
	OpenContracts         int             `json:"open_contracts"`
}
