// Package inventory contiene las reglas del libro de inventario de grano: cada función valida
// primero y solo después muta el lote, de modo que un error deja el lote intacto.
package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
)

// NormalizeCropType normaliza el tipo de cultivo ("  Corn " → "corn").
// cases.Caser no es seguro entre goroutines: se crea uno por llamada.
func NormalizeCropType(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// NewLotParams datos para abrir un lote.
type NewLotParams struct {
	ID              string
	FarmID          string
	Year            int
	CropType        string
	StorageLocation string
	FieldID         string
	Unit            string
	InitialQuantity decimal.Decimal
	Quality         entity.Quality
	CostBasis       entity.CostBasis
	Notes           string
	CreatedBy       string
	Now             time.Time
}

// NewLot valida la identidad del lote e inicializa Current = Initial, Reserved = 0.
func NewLot(p NewLotParams) (*entity.InventoryLot, error) {
	switch {
	case strings.TrimSpace(p.FarmID) == "":
		return nil, domain.NewValidationError("farm_id", "es requerido")
	case p.Year < 1900 || p.Year > 2200:
		return nil, domain.NewValidationError("year", "fuera de rango")
	case NormalizeCropType(p.CropType) == "":
		return nil, domain.NewValidationError("crop_type", "es requerido")
	case strings.TrimSpace(p.StorageLocation) == "":
		return nil, domain.NewValidationError("storage_location", "es requerido")
	case p.InitialQuantity.IsNegative():
		return nil, domain.NewValidationError("initial_quantity", "no puede ser negativa")
	}
	if err := validateCostBasis(p.CostBasis); err != nil {
		return nil, err
	}
	unit := p.Unit
	if unit == "" {
		unit = entity.DefaultUnit
	}
	lot := &entity.InventoryLot{
		ID:               p.ID,
		FarmID:           p.FarmID,
		Year:             p.Year,
		CropType:         NormalizeCropType(p.CropType),
		StorageLocation:  strings.TrimSpace(p.StorageLocation),
		FieldID:          p.FieldID,
		Unit:             unit,
		InitialQuantity:  p.InitialQuantity,
		CurrentQuantity:  p.InitialQuantity,
		ReservedQuantity: decimal.Zero,
		Quality:          p.Quality,
		CostBasis:        p.CostBasis,
		Status:           entity.LotStatusActive,
		Notes:            p.Notes,
		CreatedAt:        p.Now,
		CreatedBy:        p.CreatedBy,
		UpdatedAt:        p.Now,
		UpdatedBy:        p.CreatedBy,
	}
	lot.Recalculate()
	return lot, nil
}

func validateCostBasis(c entity.CostBasis) error {
	if c.ProductionCostPerUnit.IsNegative() || c.StorageCostPerUnit.IsNegative() || c.DryingCostPerUnit.IsNegative() {
		return domain.NewValidationError("cost_basis", "no admite costos negativos")
	}
	return nil
}

func ensureOpen(lot *entity.InventoryLot) error {
	if lot.IsClosed() {
		return &domain.ConflictError{Reason: "lote " + string(lot.Status), Err: domain.ErrLotClosed}
	}
	return nil
}

// ApplyAddition suma una entrada al lote, reactiva un lote agotado y re-promedia el costo de producción.
// Una entrada sin costo (CostPerUnit = 0) no diluye el costo promedio.
func ApplyAddition(lot *entity.InventoryLot, add entity.Addition) error {
	if err := ensureOpen(lot); err != nil {
		return err
	}
	if !add.Quantity.IsPositive() {
		return domain.NewValidationError("quantity", "debe ser mayor a cero")
	}
	if add.CostPerUnit.IsNegative() {
		return domain.NewValidationError("cost_per_unit", "no puede ser negativo")
	}
	if add.CostPerUnit.IsPositive() {
		lot.CostBasis.ProductionCostPerUnit = CostCalculator(
			lot.CurrentQuantity, lot.CostBasis.ProductionCostPerUnit, add.Quantity, add.CostPerUnit)
	}
	lot.CurrentQuantity = lot.CurrentQuantity.Add(add.Quantity)
	lot.Additions = append(lot.Additions, add)
	lot.Recalculate()
	return nil
}

// ApplySale descuenta una venta del disponible y calcula bruto, deducciones y neto.
// Rechaza (sin tocar el lote) si la cantidad supera AvailableQuantity.
func ApplySale(lot *entity.InventoryLot, sale *entity.Sale) error {
	if err := ensureOpen(lot); err != nil {
		return err
	}
	if err := priceSale(sale); err != nil {
		return err
	}
	if sale.Quantity.GreaterThan(lot.AvailableQuantity) {
		return &domain.InsufficientInventoryError{
			Operation: "vender", Requested: sale.Quantity, Available: lot.AvailableQuantity, Unit: lot.Unit,
		}
	}
	lot.CurrentQuantity = lot.CurrentQuantity.Sub(sale.Quantity)
	lot.Sales = append(lot.Sales, *sale)
	lot.Recalculate()
	return nil
}

// priceSale valida la venta y completa GrossRevenue, TotalDeductions y NetRevenue.
func priceSale(sale *entity.Sale) error {
	if !sale.Quantity.IsPositive() {
		return domain.NewValidationError("quantity", "debe ser mayor a cero")
	}
	if !sale.PricePerUnit.IsPositive() {
		return domain.NewValidationError("price_per_unit", "debe ser mayor a cero")
	}
	total := decimal.Zero
	for _, d := range sale.Deductions {
		if d.Amount.IsNegative() {
			return domain.NewValidationError("deductions", "no admite montos negativos")
		}
		total = total.Add(d.Amount)
	}
	sale.GrossRevenue = sale.Quantity.Mul(sale.PricePerUnit).Round(2)
	sale.TotalDeductions = total.Round(2)
	sale.NetRevenue = sale.GrossRevenue.Sub(sale.TotalDeductions)
	if sale.Source == "" {
		sale.Source = entity.SaleSourceSpot
	}
	return nil
}

// ApplyShrinkage registra una pérdida física. No mira AvailableQuantity: la merma no es una
// transacción comercial. CurrentQuantity no baja de cero y, si la pérdida alcanza lo reservado,
// ReservedQuantity se recorta a CurrentQuantity (los contratos conservan su RemainingQuantity).
func ApplyShrinkage(lot *entity.InventoryLot, ev *entity.ShrinkageEvent) error {
	if err := ensureOpen(lot); err != nil {
		return err
	}
	if !ev.Quantity.IsPositive() {
		return domain.NewValidationError("quantity", "debe ser mayor a cero")
	}
	if strings.TrimSpace(ev.Reason) == "" {
		return domain.NewValidationError("reason", "es requerido")
	}
	applied := decimal.Min(ev.Quantity, lot.CurrentQuantity)
	ev.AppliedQuantity = applied
	lot.CurrentQuantity = lot.CurrentQuantity.Sub(applied)
	if lot.ReservedQuantity.GreaterThan(lot.CurrentQuantity) {
		lot.ReservedQuantity = lot.CurrentQuantity
	}
	lot.Shrinkage = append(lot.Shrinkage, *ev)
	lot.Recalculate()
	return nil
}

// ReserveContract agrega un contrato y reserva su cantidad. Falla si supera AvailableQuantity.
func ReserveContract(lot *entity.InventoryLot, c entity.Contract) error {
	if err := ensureOpen(lot); err != nil {
		return err
	}
	if !c.ContractedQuantity.IsPositive() {
		return domain.NewValidationError("contracted_quantity", "debe ser mayor a cero")
	}
	if strings.TrimSpace(c.Buyer) == "" {
		return domain.NewValidationError("buyer", "es requerido")
	}
	if c.Price.IsNegative() {
		return domain.NewValidationError("price", "no puede ser negativo")
	}
	if !c.DeliveryStart.IsZero() && !c.DeliveryEnd.IsZero() && c.DeliveryEnd.Before(c.DeliveryStart) {
		return domain.NewValidationError("delivery_end", "es anterior a delivery_start")
	}
	if c.ContractedQuantity.GreaterThan(lot.AvailableQuantity) {
		return &domain.InsufficientInventoryError{
			Operation: "comprometer", Requested: c.ContractedQuantity, Available: lot.AvailableQuantity, Unit: lot.Unit,
		}
	}
	if c.Type == "" {
		c.Type = entity.ContractTypeForward
	}
	c.RemainingQuantity = c.ContractedQuantity
	c.Status = entity.ContractStatusOpen
	lot.ReservedQuantity = lot.ReservedQuantity.Add(c.ContractedQuantity)
	lot.Contracts = append(lot.Contracts, c)
	lot.Recalculate()
	return nil
}

func openContract(lot *entity.InventoryLot, contractID string) (int, error) {
	idx := lot.ContractIndex(contractID)
	if idx < 0 {
		return -1, domain.NewNotFoundError("contrato", contractID)
	}
	if !lot.Contracts[idx].Status.IsOpen() {
		return -1, &domain.ConflictError{Reason: "contrato " + string(lot.Contracts[idx].Status)}
	}
	return idx, nil
}

// DeliverContract entrega grano contra un contrato: baja RemainingQuantity, ReservedQuantity y
// CurrentQuantity en el mismo paso y registra la venta asociada (Source = contract).
// Si el precio de la venta viene en cero se usa el precio del contrato.
func DeliverContract(lot *entity.InventoryLot, contractID string, sale *entity.Sale, now time.Time) error {
	if err := ensureOpen(lot); err != nil {
		return err
	}
	idx, err := openContract(lot, contractID)
	if err != nil {
		return err
	}
	c := &lot.Contracts[idx]
	if sale.PricePerUnit.IsZero() {
		sale.PricePerUnit = c.Price
	}
	if sale.Buyer == "" {
		sale.Buyer = c.Buyer
	}
	sale.Source = entity.SaleSourceContract
	sale.ContractID = c.ID
	if err := priceSale(sale); err != nil {
		return err
	}
	if sale.Quantity.GreaterThan(c.RemainingQuantity) {
		return &domain.InsufficientInventoryError{
			Operation: "entregar", Requested: sale.Quantity, Available: c.RemainingQuantity, Unit: lot.Unit,
		}
	}
	// La parte no cubierta por la reserva (reserva recortada por merma) sale del disponible.
	release := decimal.Min(sale.Quantity, lot.ReservedQuantity)
	if extra := sale.Quantity.Sub(release); extra.GreaterThan(lot.AvailableQuantity) {
		return &domain.InsufficientInventoryError{
			Operation: "entregar", Requested: sale.Quantity, Available: release.Add(lot.AvailableQuantity), Unit: lot.Unit,
		}
	}

	lot.CurrentQuantity = lot.CurrentQuantity.Sub(sale.Quantity)
	lot.ReservedQuantity = lot.ReservedQuantity.Sub(release)
	c.RemainingQuantity = c.RemainingQuantity.Sub(sale.Quantity)
	c.Deliveries = append(c.Deliveries, entity.ContractDelivery{Date: sale.Date, Quantity: sale.Quantity, SaleID: sale.ID})
	if c.RemainingQuantity.IsZero() {
		c.Status = entity.ContractStatusFilled
		c.ClosedAt = &now
	} else {
		c.Status = entity.ContractStatusPartiallyFilled
	}
	lot.Sales = append(lot.Sales, *sale)
	lot.Recalculate()
	return nil
}

// CancelContract cancela un contrato abierto y libera su reserva pendiente.
func CancelContract(lot *entity.InventoryLot, contractID string, now time.Time) error {
	idx, err := openContract(lot, contractID)
	if err != nil {
		return err
	}
	closeContract(lot, idx, entity.ContractStatusCancelled, now)
	lot.Recalculate()
	return nil
}

// ExpireContracts vence los contratos abiertos cuya ventana de entrega terminó antes de asOf.
// Devuelve cuántos contratos vencieron.
func ExpireContracts(lot *entity.InventoryLot, asOf time.Time) int {
	n := 0
	for i := range lot.Contracts {
		c := lot.Contracts[i]
		if !c.Status.IsOpen() || c.DeliveryEnd.IsZero() || !asOf.After(c.DeliveryEnd) {
			continue
		}
		closeContract(lot, i, entity.ContractStatusExpired, asOf)
		n++
	}
	if n > 0 {
		lot.Recalculate()
	}
	return n
}

func closeContract(lot *entity.InventoryLot, idx int, status entity.ContractStatus, now time.Time) {
	c := &lot.Contracts[idx]
	release := decimal.Min(c.RemainingQuantity, lot.ReservedQuantity)
	lot.ReservedQuantity = lot.ReservedQuantity.Sub(release)
	c.Status = status
	c.ClosedAt = &now
}

// CloseLot cierre administrativo (transferred / written_off). Sin vuelta atrás.
func CloseLot(lot *entity.InventoryLot, status entity.LotStatus, reason string, now time.Time) error {
	if !status.IsTerminal() {
		return domain.NewValidationError("status", "debe ser transferred o written_off")
	}
	if err := ensureOpen(lot); err != nil {
		return err
	}
	if lot.ReservedQuantity.IsPositive() {
		return &domain.ConflictError{Reason: "el lote tiene " + lot.ReservedQuantity.String() + " " + lot.Unit + " comprometidos en contratos abiertos"}
	}
	lot.Status = status
	lot.CloseReason = reason
	lot.ClosedAt = &now
	if lot.SlidingScale != nil {
		lot.SlidingScale.Active = false
	}
	lot.Recalculate()
	return nil
}

// AppendMarketPrice agrega una observación a la ventana móvil del lote (las más recientes).
func AppendMarketPrice(lot *entity.InventoryLot, obs entity.MarketPriceObservation, window int) error {
	if !obs.Price.IsPositive() {
		return domain.NewValidationError("price", "debe ser mayor a cero")
	}
	if obs.Date.IsZero() {
		return domain.NewValidationError("date", "es requerida")
	}
	if window <= 0 {
		window = entity.DefaultMarketPriceWindow
	}
	prices := append(lot.MarketPrices, obs)
	// inserción ordenada por fecha; la ventana es chica
	for i := len(prices) - 1; i > 0 && prices[i].Date.Before(prices[i-1].Date); i-- {
		prices[i], prices[i-1] = prices[i-1], prices[i]
	}
	if len(prices) > window {
		prices = append([]entity.MarketPriceObservation(nil), prices[len(prices)-window:]...)
	}
	lot.MarketPrices = prices
	return nil
}
