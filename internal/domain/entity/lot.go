package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotStatus estado del lote.
// active ⇄ depleted es automático (CurrentQuantity cruza 0); transferred y written_off son terminales.
type LotStatus string

const (
	LotStatusActive      LotStatus = "active"
	LotStatusDepleted    LotStatus = "depleted"
	LotStatusTransferred LotStatus = "transferred"
	LotStatusWrittenOff  LotStatus = "written_off"
)

// IsTerminal indica un cierre administrativo (sin vuelta atrás).
func (s LotStatus) IsTerminal() bool {
	return s == LotStatusTransferred || s == LotStatusWrittenOff
}

// Valid indica si el estado es conocido.
func (s LotStatus) Valid() bool {
	switch s {
	case LotStatusActive, LotStatusDepleted, LotStatusTransferred, LotStatusWrittenOff:
		return true
	}
	return false
}

// DefaultUnit unidad por defecto de los lotes (bushels).
const DefaultUnit = "bu"

// Quality atributos de calidad del grano almacenado.
// ProteinPct aplica a trigo y OilPct a soya; nil = no medido.
type Quality struct {
	MoisturePct        decimal.Decimal
	TestWeight         decimal.Decimal // lb/bu
	ForeignMaterialPct decimal.Decimal
	DamagePct          decimal.Decimal
	Grade              string
	ProteinPct         *decimal.Decimal
	OilPct             *decimal.Decimal
}

// CostBasis costos por unidad del lote.
type CostBasis struct {
	ProductionCostPerUnit decimal.Decimal
	StorageCostPerUnit    decimal.Decimal
	DryingCostPerUnit     decimal.Decimal
}

// PerUnit costo total por unidad.
func (c CostBasis) PerUnit() decimal.Decimal {
	return c.ProductionCostPerUnit.Add(c.StorageCostPerUnit).Add(c.DryingCostPerUnit)
}

// InventoryLot unidad física de almacenamiento (silo, bin o pila) de un cultivo de un año.
// AvailableQuantity es siempre CurrentQuantity - ReservedQuantity (ver Recalculate).
type InventoryLot struct {
	ID              string
	FarmID          string
	Year            int
	CropType        string
	StorageLocation string
	FieldID         string // referencia al registro de campos; el lote no guarda datos del campo
	Unit            string

	InitialQuantity   decimal.Decimal
	CurrentQuantity   decimal.Decimal
	ReservedQuantity  decimal.Decimal
	AvailableQuantity decimal.Decimal

	Quality   Quality
	CostBasis CostBasis
	Status    LotStatus
	Notes     string

	Contracts    []Contract
	Sales        []Sale
	Shrinkage    []ShrinkageEvent
	Additions    []Addition
	MarketPrices []MarketPriceObservation
	SlidingScale *SlidingScaleConfig

	Version     int64 // revisión para control optimista
	CloseReason string
	ClosedAt    *time.Time
	CreatedAt   time.Time
	CreatedBy   string
	UpdatedAt   time.Time
	UpdatedBy   string
}

// Recalculate recalcula AvailableQuantity y la transición active ⇄ depleted.
// Toda operación que muta cantidades debe llamarlo como último paso.
func (l *InventoryLot) Recalculate() {
	l.AvailableQuantity = l.CurrentQuantity.Sub(l.ReservedQuantity)
	if l.Status.IsTerminal() {
		return
	}
	if l.CurrentQuantity.IsZero() {
		l.Status = LotStatusDepleted
	} else {
		l.Status = LotStatusActive
	}
}

// IsClosed indica si el lote fue transferido o dado de baja.
func (l *InventoryLot) IsClosed() bool {
	return l.Status.IsTerminal()
}

// CostBasisValue valor del lote al costo: CurrentQuantity × costo por unidad.
func (l *InventoryLot) CostBasisValue() decimal.Decimal {
	return l.CurrentQuantity.Mul(l.CostBasis.PerUnit())
}

// ContractIndex devuelve la posición del contrato o -1.
func (l *InventoryLot) ContractIndex(contractID string) int {
	for i := range l.Contracts {
		if l.Contracts[i].ID == contractID {
			return i
		}
	}
	return -1
}

// OpenContracts cuenta contratos open o partially_filled.
func (l *InventoryLot) OpenContracts() int {
	n := 0
	for _, c := range l.Contracts {
		if c.Status.IsOpen() {
			n++
		}
	}
	return n
}

// HasActiveSlidingScale indica una escala activa con al menos un tramo pendiente.
func (l *InventoryLot) HasActiveSlidingScale() bool {
	if l.SlidingScale == nil || !l.SlidingScale.Active {
		return false
	}
	return l.SlidingScale.PendingTiers() > 0
}

// LatestPrice última observación de mercado registrada en el lote (nil si no hay).
func (l *InventoryLot) LatestPrice() *MarketPriceObservation {
	if len(l.MarketPrices) == 0 {
		return nil
	}
	latest := l.MarketPrices[0]
	for _, o := range l.MarketPrices[1:] {
		if !o.Date.Before(latest.Date) {
			latest = o
		}
	}
	return &latest
}

// NetRevenue ingresos netos realizados por todas las ventas del lote.
func (l *InventoryLot) NetRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, s := range l.Sales {
		total = total.Add(s.NetRevenue)
	}
	return total
}

// Clone copia profunda del lote (los repositorios en memoria no comparten punteros).
func (l *InventoryLot) Clone() *InventoryLot {
	if l == nil {
		return nil
	}
	c := *l
	c.Quality = l.Quality.clone()
	c.Contracts = cloneContracts(l.Contracts)
	c.Sales = cloneSales(l.Sales)
	c.Shrinkage = append([]ShrinkageEvent(nil), l.Shrinkage...)
	c.Additions = append([]Addition(nil), l.Additions...)
	c.MarketPrices = append([]MarketPriceObservation(nil), l.MarketPrices...)
	if l.SlidingScale != nil {
		c.SlidingScale = l.SlidingScale.Clone()
	}
	if l.ClosedAt != nil {
		t := *l.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

func (q Quality) clone() Quality {
	c := q
	if q.ProteinPct != nil {
		v := *q.ProteinPct
		c.ProteinPct = &v
	}
	if q.OilPct != nil {
		v := *q.OilPct
		c.OilPct = &v
	}
	return c
}
