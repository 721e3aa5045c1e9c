package grain

import (
	"context"
	"errors"
	"time"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

// Deps dependencias compartidas por los casos de uso de grano.
type Deps struct {
	TxRunner TxRunner
	// Repo lecturas fuera de transacción (consultas, evaluación, reportes).
	Repo   repository.LotRepository
	Locker LotLocker
	// Fields opcional; si es nil no se valida FieldID.
	Fields            FieldRegistry
	Logger            *logger.Logger
	Retry             RetryPolicy
	MarketPriceWindow int
	// Clock opcional; por defecto time.Now en UTC.
	Clock func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Retry.MaxAttempts == 0 {
		d.Retry = DefaultRetryPolicy()
	}
	if d.MarketPriceWindow <= 0 {
		d.MarketPriceWindow = entity.DefaultMarketPriceWindow
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// lotRef identifica el lote y al llamador de una mutación.
type lotRef struct {
	FarmID string
	UserID string
	LotID  string
}

// lotMutator sección crítica por lote: lock → transacción → lectura FOR UPDATE →
// regla de dominio → Update con chequeo de versión. Todo el bloque se reintenta
// ante conflictos transitorios.
type lotMutator struct {
	tx     TxRunner
	locker LotLocker
	retry  RetryPolicy
	log    *logger.Logger
	clock  func() time.Time
}

func newLotMutator(d Deps) *lotMutator {
	return &lotMutator{tx: d.TxRunner, locker: d.Locker, retry: d.Retry, log: d.Logger, clock: d.Clock}
}

// mutate aplica fn al lote bajo su lock y lo persiste. Si fn falla el lote almacenado no cambia.
func (m *lotMutator) mutate(
	ctx context.Context,
	op string,
	ref lotRef,
	fn func(lot *entity.InventoryLot, now time.Time) error,
) (*entity.InventoryLot, error) {
	var out *entity.InventoryLot
	err := m.retry.Do(ctx, func() error {
		unlock, err := m.locker.Lock(ctx, ref.LotID)
		if err != nil {
			return err
		}
		defer unlock()

		return m.tx.Run(ctx, func(repo repository.LotRepository) error {
			lot, err := repo.GetForUpdate(ctx, ref.LotID)
			if err != nil {
				return err
			}
			if lot == nil {
				return domain.NewNotFoundError("lote", ref.LotID)
			}
			if lot.FarmID != ref.FarmID {
				return domain.ErrForbidden
			}
			now := m.clock()
			if err := fn(lot, now); err != nil {
				return err
			}
			lot.UpdatedAt = now
			lot.UpdatedBy = ref.UserID
			if err := repo.Update(ctx, lot); err != nil {
				return err
			}
			out = lot
			return nil
		})
	})
	if err != nil {
		m.logRejection(op, ref, err)
		return nil, err
	}
	m.log.Info().
		Str("op", op).
		Str("lot_id", out.ID).
		Str("farm_id", out.FarmID).
		Int64("version", out.Version).
		Str("current", out.CurrentQuantity.String()).
		Str("reserved", out.ReservedQuantity.String()).
		Msg("mutación de lote aplicada")
	return out, nil
}

func (m *lotMutator) logRejection(op string, ref lotRef, err error) {
	ev := m.log.Warn()
	var ce *domain.ConflictError
	if !isBusinessError(err) && !errors.As(err, &ce) {
		ev = m.log.Error()
	}
	ev.Err(err).Str("op", op).Str("lot_id", ref.LotID).Str("farm_id", ref.FarmID).Msg("mutación de lote rechazada")
}

// isBusinessError errores esperables del dominio (se registran como warn, no como error).
func isBusinessError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInput,
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrInsufficientInventory,
		domain.ErrInvalidConfiguration,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
