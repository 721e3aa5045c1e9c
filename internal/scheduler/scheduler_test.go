package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/infrastructure/memory"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/scheduler"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

var now = time.Date(2025, 11, 1, 6, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(t *testing.T) *grain.Engine {
	t.Helper()
	store := memory.NewLotStore()
	return grain.NewEngine(grain.Deps{
		TxRunner: memory.NewTxRunner(store),
		Repo:     store,
		Locker:   memory.NewKeyedLocker(),
		Logger:   logger.Nop(),
		Clock:    func() time.Time { return now },
	})
}

func TestSweep_VenceContratosYEjecutaTramosPorFecha(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	lot, err := eng.Ledger.CreateLot(ctx, dto.CreateLotInput{
		FarmID: "farm", Year: 2025, CropType: "soybeans", StorageLocation: "bin-1", InitialQuantity: dec("4000"),
	})
	require.NoError(t, err)
	_, _, err = eng.Contracts.AddContract(ctx, dto.ContractInput{
		FarmID: "farm", LotID: lot.ID, Buyer: "crusher", ContractedQuantity: dec("1000"),
		DeliveryEnd: now.AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	due := now.AddDate(0, 0, -2)
	_, err = eng.SlidingScale.ConfigureSlidingScale(ctx, dto.SlidingScaleInput{
		FarmID: "farm", LotID: lot.ID,
		Tiers: []dto.TierInput{{PercentToSell: dec("25"), TriggerType: "date_reaches", TriggerDate: &due}},
	})
	require.NoError(t, err)
	_, err = eng.Ledger.RecordMarketPrice(ctx, dto.MarketPriceInput{FarmID: "farm", LotID: lot.ID, Price: dec("10.20")})
	require.NoError(t, err)

	s := scheduler.New(scheduler.Config{Spec: "0 6 * * *", AutoExecute: true}, eng, logger.Nop())
	rep, err := s.Sweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, rep.ExpiredContracts)
	assert.Equal(t, 1, rep.DueTiers)
	assert.Equal(t, 1, rep.ExecutedTiers)
	assert.Zero(t, rep.SkippedTiers)

	out, err := eng.Ledger.GetLot(ctx, "farm", lot.ID)
	require.NoError(t, err)
	assert.True(t, out.ReservedQuantity.IsZero(), "el contrato vencido libera la reserva")
	assert.True(t, out.CurrentQuantity.Equal(dec("3000")))
	assert.Equal(t, "expired", out.Contracts[0].Status)
}

func TestSweep_SinAutoEjecucion(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	lot, err := eng.Ledger.CreateLot(ctx, dto.CreateLotInput{
		FarmID: "farm", Year: 2025, CropType: "corn", StorageLocation: "bin-1", InitialQuantity: dec("1000"),
	})
	require.NoError(t, err)
	due := now.AddDate(0, 0, -1)
	_, err = eng.SlidingScale.ConfigureSlidingScale(ctx, dto.SlidingScaleInput{
		FarmID: "farm", LotID: lot.ID,
		Tiers: []dto.TierInput{{PercentToSell: dec("50"), TriggerType: "date_reaches", TriggerDate: &due}},
	})
	require.NoError(t, err)

	rep, err := scheduler.New(scheduler.Config{Spec: "@daily"}, eng, nil).Sweep(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, rep.DueTiers)
	assert.Zero(t, rep.ExecutedTiers)
	assert.Zero(t, rep.ExpiredContracts)
}

func TestStart_RechazaExpresionInvalida(t *testing.T) {
	s := scheduler.New(scheduler.Config{Spec: "cada tanto"}, newEngine(t), logger.Nop())
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := scheduler.New(scheduler.Config{Spec: "0 6 * * *"}, newEngine(t), logger.Nop())
	require.NoError(t, s.Start())
	s.Stop()
}
