package grain_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/infrastructure/memory"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

const (
	farmID    = "farm-m77"
	otherFarm = "farm-vecina"
	userID    = "user-1"
)

var fixedNow = time.Date(2025, 9, 15, 14, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "esperado %s, obtenido %s %v", want, got.String(), msgAndArgs)
}

// assertLotInvariant Available = Current - Reserved sobre la respuesta.
func assertLotInvariant(t *testing.T, lot *dto.LotResponse) {
	t.Helper()
	assert.True(t, lot.AvailableQuantity.Equal(lot.CurrentQuantity.Sub(lot.ReservedQuantity)),
		"available %s != current %s - reserved %s", lot.AvailableQuantity, lot.CurrentQuantity, lot.ReservedQuantity)
	assert.False(t, lot.CurrentQuantity.IsNegative())
	assert.True(t, lot.ReservedQuantity.LessThanOrEqual(lot.CurrentQuantity))
}

type fixture struct {
	ctx    context.Context
	store  *memory.LotStore
	fields *memory.FieldRegistry
	engine *grain.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewLotStore()
	fields := memory.NewFieldRegistry(
		entity.FieldRef{ID: "field-norte", FarmID: farmID, Name: "Norte", Acres: d("160")},
		entity.FieldRef{ID: "field-ajeno", FarmID: otherFarm, Name: "Vecino", Acres: d("80")},
	)
	deps := grain.Deps{
		TxRunner: memory.NewTxRunner(store),
		Repo:     store,
		Locker:   memory.NewKeyedLocker(),
		Fields:   fields,
		Logger:   logger.Nop(),
		Retry:    grain.RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		Clock:    func() time.Time { return fixedNow },
	}
	return &fixture{ctx: context.Background(), store: store, fields: fields, engine: grain.NewEngine(deps)}
}

func (f *fixture) createLot(t *testing.T, farm, crop, qty string) *dto.LotResponse {
	t.Helper()
	lot, err := f.engine.Ledger.CreateLot(f.ctx, dto.CreateLotInput{
		FarmID:          farm,
		UserID:          userID,
		Year:            2025,
		CropType:        crop,
		StorageLocation: "bin-1",
		InitialQuantity: d(qty),
	})
	require.NoError(t, err)
	return lot
}

func (f *fixture) getLot(t *testing.T, lotID string) *dto.LotResponse {
	t.Helper()
	lot, err := f.engine.Ledger.GetLot(f.ctx, farmID, lotID)
	require.NoError(t, err)
	return lot
}

// wheatScale configura 6.25/25%, 6.75/35%, 7.00/40% sobre el lote.
func (f *fixture) wheatScale(t *testing.T, lotID string) *dto.LotResponse {
	t.Helper()
	lot, err := f.engine.SlidingScale.ConfigureSlidingScale(f.ctx, dto.SlidingScaleInput{
		FarmID:       farmID,
		UserID:       userID,
		LotID:        lotID,
		MinimumPrice: d("6.00"),
		TargetPrice:  d("7.00"),
		Tiers: []dto.TierInput{
			{PricePerUnit: d("6.25"), PercentToSell: d("25"), TriggerType: string(entity.TriggerPriceReaches)},
			{PricePerUnit: d("6.75"), PercentToSell: d("35"), TriggerType: string(entity.TriggerPriceReaches)},
			{PricePerUnit: d("7.00"), PercentToSell: d("40"), TriggerType: string(entity.TriggerPriceReaches)},
		},
	})
	require.NoError(t, err)
	return lot
}
