package inventory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/inventory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Alta de lotes
// ──────────────────────────────────────────────────────────────────────────────

func TestNewLot_InicializaCantidades(t *testing.T) {
	lot := newLot(t, "  Wheat ", "10000")

	assert.Equal(t, "wheat", lot.CropType, "el cultivo se normaliza")
	assert.Equal(t, entity.DefaultUnit, lot.Unit)
	assert.Equal(t, entity.LotStatusActive, lot.Status)
	assertDec(t, "10000", lot.CurrentQuantity)
	assertDec(t, "0", lot.ReservedQuantity)
	assertDec(t, "10000", lot.AvailableQuantity)
	assertInvariant(t, lot)
}

func TestNewLot_CantidadCeroQuedaAgotado(t *testing.T) {
	lot := newLot(t, "corn", "0")
	assert.Equal(t, entity.LotStatusDepleted, lot.Status)
}

func TestNewLot_ValidaCampos(t *testing.T) {
	base := inventory.NewLotParams{
		FarmID: "farm-1", Year: 2025, CropType: "corn", StorageLocation: "bin-1", InitialQuantity: d("100"),
	}
	cases := []struct {
		name   string
		mutate func(p *inventory.NewLotParams)
		field  string
	}{
		{"sin granja", func(p *inventory.NewLotParams) { p.FarmID = " " }, "farm_id"},
		{"año fuera de rango", func(p *inventory.NewLotParams) { p.Year = 1800 }, "year"},
		{"sin cultivo", func(p *inventory.NewLotParams) { p.CropType = "  " }, "crop_type"},
		{"sin ubicación", func(p *inventory.NewLotParams) { p.StorageLocation = "" }, "storage_location"},
		{"cantidad negativa", func(p *inventory.NewLotParams) { p.InitialQuantity = d("-1") }, "initial_quantity"},
		{"costo negativo", func(p *inventory.NewLotParams) { p.CostBasis.DryingCostPerUnit = d("-0.1") }, "cost_basis"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := inventory.NewLot(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Ventas y entradas
// ──────────────────────────────────────────────────────────────────────────────

func TestApplySale_CalculaBrutoDeduccionesYNeto(t *testing.T) {
	lot := newLot(t, "wheat", "10000")
	s := sale("1000", "6.30")
	s.Deductions = []entity.Deduction{{Reason: "flete", Amount: d("50")}, {Reason: "checkoff", Amount: d("25.50")}}

	require.NoError(t, inventory.ApplySale(lot, s))

	assertDec(t, "6300", s.GrossRevenue)
	assertDec(t, "75.50", s.TotalDeductions)
	assertDec(t, "6224.50", s.NetRevenue)
	assert.Equal(t, entity.SaleSourceSpot, s.Source)
	assertDec(t, "9000", lot.CurrentQuantity)
	require.Len(t, lot.Sales, 1)
	assertInvariant(t, lot)
}

func TestApplySale_RechazaSobreventaSinTocarLote(t *testing.T) {
	lot := newLot(t, "wheat", "8200")
	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "c1", Buyer: "coop", ContractedQuantity: d("5000")}))

	err := inventory.ApplySale(lot, sale("5000", "6.00"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assert.Equal(t, "no se pueden vender 5000 bu; solo hay 3200 disponibles", err.Error())
	assertDec(t, "8200", lot.CurrentQuantity, "el lote no debe cambiar")
	assertDec(t, "3200", lot.AvailableQuantity)
	assert.Empty(t, lot.Sales)
	assertInvariant(t, lot)
}

func TestApplySale_ValidaCantidadYPrecio(t *testing.T) {
	lot := newLot(t, "wheat", "100")
	assert.ErrorIs(t, inventory.ApplySale(lot, sale("0", "6")), domain.ErrInvalidInput)
	assert.ErrorIs(t, inventory.ApplySale(lot, sale("10", "0")), domain.ErrInvalidInput)
	neg := sale("10", "6")
	neg.Deductions = []entity.Deduction{{Reason: "x", Amount: d("-1")}}
	assert.ErrorIs(t, inventory.ApplySale(lot, neg), domain.ErrInvalidInput)
	assertDec(t, "100", lot.CurrentQuantity)
}

func TestApplySale_AgotaYUnaEntradaReactiva(t *testing.T) {
	lot := newLot(t, "corn", "1000")
	require.NoError(t, inventory.ApplySale(lot, sale("1000", "4.50")))
	assert.Equal(t, entity.LotStatusDepleted, lot.Status)

	require.NoError(t, inventory.ApplyAddition(lot, entity.Addition{ID: "a1", Quantity: d("500"), Date: testNow}))

	assertDec(t, "500", lot.CurrentQuantity)
	assert.Equal(t, entity.LotStatusActive, lot.Status)
	assertInvariant(t, lot)
}

func TestApplyAddition_PromediaCostoDeProduccion(t *testing.T) {
	lot := newLot(t, "corn", "1000")
	lot.CostBasis.ProductionCostPerUnit = d("4.00")

	require.NoError(t, inventory.ApplyAddition(lot, entity.Addition{ID: "a1", Quantity: d("1000"), CostPerUnit: d("5.00")}))
	assertDec(t, "4.5", lot.CostBasis.ProductionCostPerUnit)

	require.NoError(t, inventory.ApplyAddition(lot, entity.Addition{ID: "a2", Quantity: d("1000")}))
	assertDec(t, "4.5", lot.CostBasis.ProductionCostPerUnit, "una entrada sin costo no diluye el promedio")
	assertDec(t, "3000", lot.CurrentQuantity)
	assert.Len(t, lot.Additions, 2)
}

func TestApplyAddition_RechazaCantidadNoPositiva(t *testing.T) {
	lot := newLot(t, "corn", "10")
	assert.ErrorIs(t, inventory.ApplyAddition(lot, entity.Addition{Quantity: d("0")}), domain.ErrInvalidInput)
	assert.ErrorIs(t, inventory.ApplyAddition(lot, entity.Addition{Quantity: d("5"), CostPerUnit: d("-1")}), domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Contratos
// ──────────────────────────────────────────────────────────────────────────────

func TestReserveContract_ReservaYRechazaExceso(t *testing.T) {
	lot := newLot(t, "soybeans", "6000")

	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "c1", Buyer: "coop", ContractedQuantity: d("5000")}))
	assertDec(t, "5000", lot.ReservedQuantity)
	assertDec(t, "1000", lot.AvailableQuantity)
	assert.Equal(t, entity.ContractStatusOpen, lot.Contracts[0].Status)
	assert.Equal(t, entity.ContractTypeForward, lot.Contracts[0].Type)
	assertDec(t, "5000", lot.Contracts[0].RemainingQuantity)

	err := inventory.ReserveContract(lot, entity.Contract{ID: "c2", Buyer: "coop", ContractedQuantity: d("2000")})
	assert.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assertDec(t, "5000", lot.ReservedQuantity, "el segundo contrato no reserva nada")
	assert.Len(t, lot.Contracts, 1)
	assertInvariant(t, lot)
}

func TestDeliverContract_BajaRemanenteReservaYExistencia(t *testing.T) {
	lot := newLot(t, "corn", "10000")
	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "c1", Buyer: "ethanol", ContractedQuantity: d("5000"), Price: d("4.80")}))

	first := &entity.Sale{ID: "s1", Date: testNow, Quantity: d("2000")}
	require.NoError(t, inventory.DeliverContract(lot, "c1", first, testNow))

	assertDec(t, "8000", lot.CurrentQuantity)
	assertDec(t, "3000", lot.ReservedQuantity)
	assertDec(t, "5000", lot.AvailableQuantity)
	c := lot.Contracts[0]
	assert.Equal(t, entity.ContractStatusPartiallyFilled, c.Status)
	assertDec(t, "3000", c.RemainingQuantity)
	assert.Equal(t, entity.SaleSourceContract, first.Source)
	assert.Equal(t, "c1", first.ContractID)
	assert.Equal(t, "ethanol", first.Buyer, "sin comprador se usa el del contrato")
	assertDec(t, "9600", first.GrossRevenue, "sin precio se usa el del contrato")
	assertInvariant(t, lot)

	require.NoError(t, inventory.DeliverContract(lot, "c1", &entity.Sale{ID: "s2", Quantity: d("3000")}, testNow))
	assert.Equal(t, entity.ContractStatusFilled, lot.Contracts[0].Status)
	assert.NotNil(t, lot.Contracts[0].ClosedAt)
	assertDec(t, "0", lot.ReservedQuantity)
	assertDec(t, "5000", lot.CurrentQuantity)

	err := inventory.DeliverContract(lot, "c1", &entity.Sale{ID: "s3", Quantity: d("1")}, testNow)
	assert.ErrorIs(t, err, domain.ErrConflict, "un contrato lleno no admite entregas")
	assert.Len(t, lot.Sales, 2)
}

func TestDeliverContract_RechazaMasQueElRemanente(t *testing.T) {
	lot := newLot(t, "corn", "10000")
	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "c1", Buyer: "b", ContractedQuantity: d("5000"), Price: d("4")}))

	err := inventory.DeliverContract(lot, "c1", &entity.Sale{ID: "s1", Quantity: d("6000")}, testNow)

	assert.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assertDec(t, "10000", lot.CurrentQuantity)
	assertDec(t, "5000", lot.ReservedQuantity)
}

func TestDeliverContract_ContratoInexistente(t *testing.T) {
	lot := newLot(t, "corn", "100")
	err := inventory.DeliverContract(lot, "nope", &entity.Sale{Quantity: d("1"), PricePerUnit: d("1")}, testNow)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelContract_LiberaReserva(t *testing.T) {
	lot := newLot(t, "corn", "1000")
	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "c1", Buyer: "b", ContractedQuantity: d("600")}))

	require.NoError(t, inventory.CancelContract(lot, "c1", testNow))

	assert.Equal(t, entity.ContractStatusCancelled, lot.Contracts[0].Status)
	assertDec(t, "0", lot.ReservedQuantity)
	assertDec(t, "1000", lot.AvailableQuantity)
	assert.ErrorIs(t, inventory.CancelContract(lot, "c1", testNow), domain.ErrConflict)
}

func TestExpireContracts_VenceSoloLosPasados(t *testing.T) {
	lot := newLot(t, "corn", "1000")
	past := testNow.AddDate(0, -1, 0)
	future := testNow.AddDate(0, 1, 0)
	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "old", Buyer: "b", ContractedQuantity: d("300"), DeliveryEnd: past}))
	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "new", Buyer: "b", ContractedQuantity: d("200"), DeliveryEnd: future}))

	n := inventory.ExpireContracts(lot, testNow)

	assert.Equal(t, 1, n)
	assert.Equal(t, entity.ContractStatusExpired, lot.Contracts[0].Status)
	assert.Equal(t, entity.ContractStatusOpen, lot.Contracts[1].Status)
	assertDec(t, "200", lot.ReservedQuantity)
	assertInvariant(t, lot)
}

// ──────────────────────────────────────────────────────────────────────────────
// Mermas
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyShrinkage_NoMiraElDisponibleYRecortaReserva(t *testing.T) {
	lot := newLot(t, "corn", "1000")
	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "c1", Buyer: "b", ContractedQuantity: d("800"), Price: d("4")}))

	ev := &entity.ShrinkageEvent{ID: "sh1", Quantity: d("500"), Reason: "humedad"}
	require.NoError(t, inventory.ApplyShrinkage(lot, ev))

	assertDec(t, "500", lot.CurrentQuantity)
	assertDec(t, "500", lot.ReservedQuantity, "la reserva se recorta a la existencia")
	assertDec(t, "0", lot.AvailableQuantity)
	assertDec(t, "800", lot.Contracts[0].RemainingQuantity, "el contrato conserva su remanente")
	assertInvariant(t, lot)

	big := &entity.ShrinkageEvent{ID: "sh2", Quantity: d("700"), Reason: "plaga"}
	require.NoError(t, inventory.ApplyShrinkage(lot, big))
	assertDec(t, "500", big.AppliedQuantity, "la pérdida se acota a la existencia")
	assertDec(t, "0", lot.CurrentQuantity)
	assert.Equal(t, entity.LotStatusDepleted, lot.Status)
	assertInvariant(t, lot)
}

func TestApplyShrinkage_EntregaTrasRecorte(t *testing.T) {
	lot := newLot(t, "corn", "1000")
	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "c1", Buyer: "b", ContractedQuantity: d("800"), Price: d("4")}))
	require.NoError(t, inventory.ApplyShrinkage(lot, &entity.ShrinkageEvent{Quantity: d("300"), Reason: "humedad"}))

	require.NoError(t, inventory.DeliverContract(lot, "c1", &entity.Sale{ID: "s1", Quantity: d("700")}, testNow))

	assertDec(t, "0", lot.CurrentQuantity)
	assertDec(t, "0", lot.ReservedQuantity)
	assertDec(t, "100", lot.Contracts[0].RemainingQuantity)
	assert.Equal(t, entity.ContractStatusPartiallyFilled, lot.Contracts[0].Status)
	assertInvariant(t, lot)
}

func TestApplyShrinkage_RequiereMotivo(t *testing.T) {
	lot := newLot(t, "corn", "100")
	assert.ErrorIs(t, inventory.ApplyShrinkage(lot, &entity.ShrinkageEvent{Quantity: d("1")}), domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cierre y precios
// ──────────────────────────────────────────────────────────────────────────────

func TestCloseLot_RechazaConReservaYLuegoBloqueaMutaciones(t *testing.T) {
	lot := newLot(t, "corn", "1000")
	require.NoError(t, inventory.ReserveContract(lot, entity.Contract{ID: "c1", Buyer: "b", ContractedQuantity: d("100")}))

	assert.ErrorIs(t, inventory.CloseLot(lot, entity.LotStatusWrittenOff, "incendio", testNow), domain.ErrConflict)

	require.NoError(t, inventory.CancelContract(lot, "c1", testNow))
	require.NoError(t, inventory.CloseLot(lot, entity.LotStatusWrittenOff, "incendio", testNow))
	assert.Equal(t, entity.LotStatusWrittenOff, lot.Status)
	assert.True(t, lot.IsClosed())

	err := inventory.ApplySale(lot, sale("1", "4"))
	assert.ErrorIs(t, err, domain.ErrLotClosed)
	assert.ErrorIs(t, inventory.ApplyAddition(lot, entity.Addition{Quantity: d("1")}), domain.ErrLotClosed)
	assert.ErrorIs(t, inventory.CloseLot(lot, entity.LotStatusTransferred, "x", testNow), domain.ErrLotClosed)
}

func TestCloseLot_EstadoNoTerminal(t *testing.T) {
	lot := newLot(t, "corn", "1")
	assert.ErrorIs(t, inventory.CloseLot(lot, entity.LotStatusDepleted, "x", testNow), domain.ErrInvalidInput)
}

func TestAppendMarketPrice_VentanaMovilOrdenada(t *testing.T) {
	lot := newLot(t, "corn", "1")
	for i, p := range []string{"4.10", "4.20", "4.30", "4.40", "4.50"} {
		obs := entity.MarketPriceObservation{Date: testNow.AddDate(0, 0, i), Price: d(p), Source: "manual"}
		require.NoError(t, inventory.AppendMarketPrice(lot, obs, 3))
	}
	// una observación atrasada entra en su lugar y empuja fuera a la más vieja
	require.NoError(t, inventory.AppendMarketPrice(lot, entity.MarketPriceObservation{Date: testNow.AddDate(0, 0, 3).Add(-1), Price: d("4.35")}, 3))

	require.Len(t, lot.MarketPrices, 3)
	assertDec(t, "4.35", lot.MarketPrices[0].Price)
	assertDec(t, "4.40", lot.MarketPrices[1].Price)
	assertDec(t, "4.50", lot.LatestPrice().Price)

	assert.ErrorIs(t, inventory.AppendMarketPrice(lot, entity.MarketPriceObservation{Date: testNow, Price: d("0")}, 3), domain.ErrInvalidInput)
}

func TestNormalizeCropType(t *testing.T) {
	assert.Equal(t, "corn", inventory.NormalizeCropType("  CORN "))
	assert.Equal(t, "soybeans", inventory.NormalizeCropType("SoyBeans"))
	assert.Equal(t, "", inventory.NormalizeCropType("   "))
}
