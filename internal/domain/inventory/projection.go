package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
)

// Scenario escenario de precios con nombre: cultivo → precio por unidad.
type Scenario struct {
	Name   string
	Prices map[string]decimal.Decimal
}

// CropProjection aporte de un cultivo dentro de un escenario.
type CropProjection struct {
	CropType       string
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	Revenue        decimal.Decimal
	CostBasisValue decimal.Decimal
	Margin         decimal.Decimal
	Priced         bool // false si el escenario no trae precio para el cultivo
}

// ScenarioProjection resultado de un escenario.
type ScenarioProjection struct {
	Scenario       string
	ByCrop         []CropProjection
	TotalRevenue   decimal.Decimal
	TotalCostBasis decimal.Decimal
	TotalMargin    decimal.Decimal
}

// Project calcula aporte = CurrentQuantity × precio[cultivo] por escenario, de forma independiente.
// Lotes agotados o cerrados aportan cero, igual que un cultivo ausente del escenario.
func Project(lots []*entity.InventoryLot, scenarios []Scenario) []ScenarioProjection {
	out := make([]ScenarioProjection, 0, len(scenarios))
	for _, sc := range scenarios {
		prices := make(map[string]decimal.Decimal, len(sc.Prices))
		for crop, p := range sc.Prices {
			prices[NormalizeCropType(crop)] = p
		}
		byCrop := map[string]*CropProjection{}
		for _, lot := range lots {
			if lot.Status != entity.LotStatusActive {
				continue
			}
			cp, ok := byCrop[lot.CropType]
			if !ok {
				price, priced := prices[lot.CropType]
				cp = &CropProjection{CropType: lot.CropType, Price: price, Priced: priced}
				byCrop[lot.CropType] = cp
			}
			cp.Quantity = cp.Quantity.Add(lot.CurrentQuantity)
			cp.CostBasisValue = cp.CostBasisValue.Add(lot.CostBasisValue())
			if cp.Priced {
				cp.Revenue = cp.Revenue.Add(lot.CurrentQuantity.Mul(cp.Price))
			}
		}
		res := ScenarioProjection{Scenario: sc.Name}
		for _, crop := range sortedKeys(byCrop) {
			cp := byCrop[crop]
			cp.Revenue = cp.Revenue.Round(2)
			cp.CostBasisValue = cp.CostBasisValue.Round(2)
			cp.Margin = cp.Revenue.Sub(cp.CostBasisValue)
			res.ByCrop = append(res.ByCrop, *cp)
			res.TotalRevenue = res.TotalRevenue.Add(cp.Revenue)
			res.TotalCostBasis = res.TotalCostBasis.Add(cp.CostBasisValue)
		}
		res.TotalMargin = res.TotalRevenue.Sub(res.TotalCostBasis)
		out = append(out, res)
	}
	return out
}

// GroupTotal conteo de lotes y cantidad de un grupo (cultivo o ubicación).
type GroupTotal struct {
	Key      string
	Lots     int
	Quantity decimal.Decimal
}

// Summary resumen de inventario de una granja y año.
type Summary struct {
	TotalLots             int
	ActiveLots            int
	TotalCurrentQuantity  decimal.Decimal
	TotalReservedQuantity decimal.Decimal
	TotalAvailable        decimal.Decimal
	TotalCostBasisValue   decimal.Decimal
	RealizedNetRevenue    decimal.Decimal
	ByCrop                []GroupTotal
	ByLocation            []GroupTotal
	ActiveSlidingScales   int
	OpenContracts         int
}

// Summarize agrega totales de los lotes activos; contratos abiertos y ventas realizadas
// cuentan para todos los lotes (un lote agotado puede tener contratos o ventas).
func Summarize(lots []*entity.InventoryLot) Summary {
	s := Summary{TotalLots: len(lots)}
	byCrop := map[string]*GroupTotal{}
	byLoc := map[string]*GroupTotal{}
	for _, lot := range lots {
		s.OpenContracts += lot.OpenContracts()
		s.RealizedNetRevenue = s.RealizedNetRevenue.Add(lot.NetRevenue())
		if lot.Status != entity.LotStatusActive {
			continue
		}
		s.ActiveLots++
		s.TotalCurrentQuantity = s.TotalCurrentQuantity.Add(lot.CurrentQuantity)
		s.TotalReservedQuantity = s.TotalReservedQuantity.Add(lot.ReservedQuantity)
		s.TotalAvailable = s.TotalAvailable.Add(lot.AvailableQuantity)
		s.TotalCostBasisValue = s.TotalCostBasisValue.Add(lot.CostBasisValue())
		if lot.HasActiveSlidingScale() {
			s.ActiveSlidingScales++
		}
		addGroup(byCrop, lot.CropType, lot.CurrentQuantity)
		addGroup(byLoc, lot.StorageLocation, lot.CurrentQuantity)
	}
	s.TotalCostBasisValue = s.TotalCostBasisValue.Round(2)
	for _, k := range sortedKeys(byCrop) {
		s.ByCrop = append(s.ByCrop, *byCrop[k])
	}
	for _, k := range sortedKeys(byLoc) {
		s.ByLocation = append(s.ByLocation, *byLoc[k])
	}
	return s
}

func addGroup(m map[string]*GroupTotal, key string, qty decimal.Decimal) {
	g, ok := m[key]
	if !ok {
		g = &GroupTotal{Key: key}
		m[key] = g
	}
	g.Lots++
	g.Quantity = g.Quantity.Add(qty)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
