package grain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/infrastructure/memory"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// CreateLot
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateLot_ConCampoYCalidad(t *testing.T) {
	f := newFixture(t)
	protein := d("13.5")

	lot, err := f.engine.Ledger.CreateLot(f.ctx, dto.CreateLotInput{
		FarmID: farmID, UserID: userID, Year: 2025, CropType: "WHEAT", StorageLocation: " bin-3 ",
		FieldID: "field-norte", InitialQuantity: d("12000"),
		Quality:   dto.QualityDTO{MoisturePct: d("12.5"), TestWeight: d("60"), Grade: "2", ProteinPct: &protein},
		CostBasis: dto.CostBasisDTO{ProductionCostPerUnit: d("4.00"), StorageCostPerUnit: d("0.15")},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, lot.ID)
	assert.Equal(t, "wheat", lot.CropType)
	assert.Equal(t, "bin-3", lot.StorageLocation)
	assert.Equal(t, "field-norte", lot.FieldID)
	assert.Equal(t, entity.DefaultUnit, lot.Unit)
	assert.Equal(t, string(entity.LotStatusActive), lot.Status)
	assertDec(t, "12000", lot.CurrentQuantity)
	assertDec(t, "0", lot.ReservedQuantity)
	assertDec(t, "49800", lot.CostBasisValue)
	require.NotNil(t, lot.Quality.ProteinPct)
	assertDec(t, "13.5", *lot.Quality.ProteinPct)
	assert.Equal(t, int64(1), lot.Version)
	assert.Equal(t, fixedNow, lot.CreatedAt)
	assert.Equal(t, userID, lot.CreatedBy)
}

func TestCreateLot_CampoInexistenteOAjeno(t *testing.T) {
	f := newFixture(t)
	in := dto.CreateLotInput{FarmID: farmID, Year: 2025, CropType: "corn", StorageLocation: "bin", InitialQuantity: d("1")}

	in.FieldID = "field-fantasma"
	_, err := f.engine.Ledger.CreateLot(f.ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in.FieldID = "field-ajeno"
	_, err = f.engine.Ledger.CreateLot(f.ctx, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	lots, err := f.engine.Ledger.ListLots(f.ctx, dto.LotQuery{FarmID: farmID})
	require.NoError(t, err)
	assert.Empty(t, lots.Items, "ningún alta rechazada se persiste")
}

func TestCreateLot_SinRegistroNoVerificaCampo(t *testing.T) {
	store := memory.NewLotStore()
	eng := grain.NewEngine(grain.Deps{
		TxRunner: memory.NewTxRunner(store),
		Repo:     store,
		Locker:   memory.NewKeyedLocker(),
		Logger:   logger.Nop(),
		Clock:    func() time.Time { return fixedNow },
	})

	lot, err := eng.Ledger.CreateLot(context.Background(), dto.CreateLotInput{
		FarmID: farmID, UserID: userID, Year: 2025, CropType: "corn", StorageLocation: "bin-1",
		FieldID: "campo-desconocido", InitialQuantity: d("100"),
	})

	require.NoError(t, err)
	assert.Equal(t, "campo-desconocido", lot.FieldID)
}

func TestCreateLot_Validaciones(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name  string
		in    dto.CreateLotInput
		field string
	}{
		{"sin cultivo", dto.CreateLotInput{FarmID: farmID, Year: 2025, StorageLocation: "bin"}, "crop_type"},
		{"sin ubicación", dto.CreateLotInput{FarmID: farmID, Year: 2025, CropType: "corn"}, "storage_location"},
		{"año inválido", dto.CreateLotInput{FarmID: farmID, Year: 1492, CropType: "corn", StorageLocation: "bin"}, "year"},
		{"cantidad negativa", dto.CreateLotInput{FarmID: farmID, Year: 2025, CropType: "corn", StorageLocation: "bin", InitialQuantity: d("-5")}, "initial_quantity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Ledger.CreateLot(f.ctx, tc.in)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "se esperaba ValidationError, obtenido %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Entradas, consultas y cierre
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordAddition_ReactivaLoteAgotado(t *testing.T) {
	f := newFixture(t)
	lot := f.createLot(t, farmID, "corn", "1000")
	_, _, err := f.engine.Transactions.RecordSale(f.ctx, dto.SaleInput{
		FarmID: farmID, LotID: lot.ID, Buyer: "b", Quantity: d("1000"), PricePerUnit: d("4"),
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.LotStatusDepleted), f.getLot(t, lot.ID).Status)

	out, err := f.engine.Ledger.RecordAddition(f.ctx, dto.AdditionInput{
		FarmID: farmID, UserID: userID, LotID: lot.ID, Quantity: d("500"), CostPerUnit: d("3.80"), Source: "cosecha tardía",
	})

	require.NoError(t, err)
	assertDec(t, "500", out.CurrentQuantity)
	assert.Equal(t, string(entity.LotStatusActive), out.Status)
	assertDec(t, "3.8", out.CostBasis.ProductionCostPerUnit)
	require.Len(t, out.Additions, 1)
	assert.Equal(t, "cosecha tardía", out.Additions[0].Source)
	assert.Equal(t, userID, out.UpdatedBy, "la respuesta expone el autor de la última mutación")
}

func TestListLots_FiltrosYPaginacion(t *testing.T) {
	f := newFixture(t)
	f.createLot(t, farmID, "corn", "100")
	f.createLot(t, farmID, "corn", "200")
	f.createLot(t, farmID, "wheat", "300")
	f.createLot(t, otherFarm, "corn", "400")

	all, err := f.engine.Ledger.ListLots(f.ctx, dto.LotQuery{FarmID: farmID})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3, "los lotes de otra granja no aparecen")
	assert.Equal(t, 20, all.Page.Limit)

	corn, err := f.engine.Ledger.ListLots(f.ctx, dto.LotQuery{FarmID: farmID, CropType: " Corn"})
	require.NoError(t, err)
	assert.Len(t, corn.Items, 2)

	page, err := f.engine.Ledger.ListLots(f.ctx, dto.LotQuery{FarmID: farmID, Page: dto.PageRequest{Limit: 2, Offset: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = f.engine.Ledger.ListLots(f.ctx, dto.LotQuery{FarmID: farmID, Status: "perdido"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.Ledger.ListLots(f.ctx, dto.LotQuery{FarmID: farmID, Page: dto.PageRequest{Limit: 500}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCloseLot_ConReservaYLuegoSinElla(t *testing.T) {
	f := newFixture(t)
	lot := f.createLot(t, farmID, "corn", "1000")
	contractID := f.addContract(t, farmID, lot.ID, "100")

	in := dto.CloseLotInput{FarmID: farmID, UserID: userID, LotID: lot.ID, Status: "transferred", Reason: "traslado a silo central"}
	_, err := f.engine.Ledger.CloseLot(f.ctx, in)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.engine.Contracts.CancelContract(f.ctx, farmID, userID, lot.ID, contractID)
	require.NoError(t, err)
	out, err := f.engine.Ledger.CloseLot(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, string(entity.LotStatusTransferred), out.Status)
	assert.Equal(t, "traslado a silo central", out.CloseReason)
	require.NotNil(t, out.ClosedAt)

	_, err = f.engine.Ledger.RecordAddition(f.ctx, dto.AdditionInput{FarmID: farmID, LotID: lot.ID, Quantity: d("1")})
	assert.ErrorIs(t, err, domain.ErrLotClosed)
}

func TestRecordMarketPrice_VentanaMovil(t *testing.T) {
	f := newFixture(t)
	lot := f.createLot(t, farmID, "corn", "1000")

	for i, p := range []string{"4.10", "4.20", "4.30"} {
		date := fixedNow.AddDate(0, 0, i)
		_, err := f.engine.Ledger.RecordMarketPrice(f.ctx, dto.MarketPriceInput{
			FarmID: farmID, LotID: lot.ID, Price: d(p), Source: "cme", Date: &date,
		})
		require.NoError(t, err)
	}

	out := f.getLot(t, lot.ID)
	require.Len(t, out.MarketPrices, 3)
	assertDec(t, "4.30", out.MarketPrices[2].Price)

	_, err := f.engine.Ledger.RecordMarketPrice(f.ctx, dto.MarketPriceInput{FarmID: farmID, Price: d("4")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "sin lot_id")
}
