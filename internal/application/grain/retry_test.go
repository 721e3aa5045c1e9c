package grain_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/dto"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/infrastructure/memory"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// RetryPolicy
// ──────────────────────────────────────────────────────────────────────────────

func fastRetry(attempts int) grain.RetryPolicy {
	return grain.RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryPolicy_ReintentaSoloTransitorios(t *testing.T) {
	calls := 0
	err := fastRetry(4).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return domain.NewTransientConflict("versión", nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = fastRetry(4).Do(context.Background(), func() error {
		calls++
		return domain.NewValidationError("quantity", "debe ser mayor a cero")
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, calls, "un error de negocio no se reintenta")
}

func TestRetryPolicy_AgotaIntentos(t *testing.T) {
	calls := 0
	err := fastRetry(3).Do(context.Background(), func() error {
		calls++
		return domain.NewTransientConflict("lock ocupado", nil)
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.False(t, domain.IsTransient(err), "el error final ya no es reintentable")
	assert.Contains(t, err.Error(), "sin éxito tras 3 intentos")
}

func TestRetryPolicy_RespetaCancelacion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := grain.RetryPolicy{MaxAttempts: 10, BaseDelay: time.Hour}
	calls := 0

	err := p.Do(ctx, func() error {
		calls++
		cancel()
		return domain.NewTransientConflict("versión", nil)
	})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

// ──────────────────────────────────────────────────────────────────────────────
// Carrera de versión dentro de la sección crítica
// ──────────────────────────────────────────────────────────────────────────────

// racingTx confirma una escritura ajena sobre cada lote justo antes del commit, las primeras
// `races` veces. Simula otro proceso que no respeta el lock.
type racingTx struct {
	inner *memory.TxRunner
	store *memory.LotStore
	races atomic.Int32
}

func (r *racingTx) Run(ctx context.Context, fn func(repository.LotRepository) error) error {
	return r.inner.Run(ctx, func(repo repository.LotRepository) error {
		if err := fn(repo); err != nil {
			return err
		}
		if r.races.Add(-1) < 0 {
			return nil
		}
		lots, err := r.store.List(ctx, repository.LotFilter{})
		if err != nil {
			return err
		}
		for _, l := range lots {
			if err := r.store.Update(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
}

func newRacingEngine(t *testing.T, races int32, attempts int) (*grain.Engine, *memory.LotStore, string) {
	t.Helper()
	store := memory.NewLotStore()
	plain := grain.NewEngine(grain.Deps{
		TxRunner: memory.NewTxRunner(store), Repo: store, Locker: memory.NewKeyedLocker(), Logger: logger.Nop(),
	})
	lot, err := plain.Ledger.CreateLot(context.Background(), dto.CreateLotInput{
		FarmID: farmID, Year: 2025, CropType: "corn", StorageLocation: "bin", InitialQuantity: d("1000"),
	})
	require.NoError(t, err)

	tx := &racingTx{inner: memory.NewTxRunner(store), store: store}
	tx.races.Store(races)
	eng := grain.NewEngine(grain.Deps{
		TxRunner: tx, Repo: store, Locker: memory.NewKeyedLocker(), Logger: logger.Nop(), Retry: fastRetry(attempts),
	})
	return eng, store, lot.ID
}

func TestMutate_ReintentaTrasPerderLaCarreraSinDuplicar(t *testing.T) {
	eng, store, lotID := newRacingEngine(t, 2, 4)

	out, _, err := eng.Transactions.RecordSale(context.Background(), dto.SaleInput{
		FarmID: farmID, LotID: lotID, Buyer: "b", Quantity: d("100"), PricePerUnit: d("4"),
	})

	require.NoError(t, err)
	assertDec(t, "900", out.CurrentQuantity)
	stored, err := store.GetByID(context.Background(), lotID)
	require.NoError(t, err)
	assert.Len(t, stored.Sales, 1, "los intentos perdidos no dejan rastro")
	assert.Equal(t, int64(4), stored.Version, "alta + dos escrituras ajenas + la venta")
}

func TestMutate_ConflictoPersistenteNoEscribe(t *testing.T) {
	eng, store, lotID := newRacingEngine(t, 100, 3)

	_, _, err := eng.Transactions.RecordSale(context.Background(), dto.SaleInput{
		FarmID: farmID, LotID: lotID, Buyer: "b", Quantity: d("100"), PricePerUnit: d("4"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.False(t, domain.IsTransient(err))
	stored, err := store.GetByID(context.Background(), lotID)
	require.NoError(t, err)
	assert.Empty(t, stored.Sales)
	assertDec(t, "1000", stored.CurrentQuantity)
}
