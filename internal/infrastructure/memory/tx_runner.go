package memory

import (
	"context"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
)

var _ grain.TxRunner = (*TxRunner)(nil)

// TxRunner transacciones sobre LotStore: las escrituras quedan en un buffer y se aplican juntas
// al final si fn no falla y ninguna versión cambió entretanto. Si fn falla no se aplica nada.
type TxRunner struct {
	store *LotStore
}

// NewTxRunner construye el runner sobre el almacén.
func NewTxRunner(store *LotStore) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn con un repositorio transaccional y confirma al final.
func (r *TxRunner) Run(ctx context.Context, fn func(lotRepo repository.LotRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &txLotRepo{store: r.store, writes: make(map[string]*pendingWrite)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type pendingWrite struct {
	lot         *entity.InventoryLot
	baseVersion int64 // 0 = alta nueva
}

// txLotRepo vista transaccional: lee sus propias escrituras y delega el resto al almacén.
type txLotRepo struct {
	store  *LotStore
	writes map[string]*pendingWrite
	order  []string
}

func (t *txLotRepo) put(id string, w *pendingWrite) {
	if _, ok := t.writes[id]; !ok {
		t.order = append(t.order, id)
	}
	t.writes[id] = w
}

func (t *txLotRepo) Create(_ context.Context, lot *entity.InventoryLot) error {
	if lot.Version == 0 {
		lot.Version = 1
	}
	t.put(lot.ID, &pendingWrite{lot: lot.Clone()})
	return nil
}

func (t *txLotRepo) GetByID(ctx context.Context, id string) (*entity.InventoryLot, error) {
	if w, ok := t.writes[id]; ok {
		return w.lot.Clone(), nil
	}
	return t.store.GetByID(ctx, id)
}

func (t *txLotRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryLot, error) {
	return t.GetByID(ctx, id)
}

func (t *txLotRepo) Update(_ context.Context, lot *entity.InventoryLot) error {
	base := lot.Version
	if prev, ok := t.writes[lot.ID]; ok {
		// segunda escritura del mismo lote en la tx: conserva la versión de partida
		if prev.lot.Version != lot.Version {
			return staleWithinTx(lot.ID)
		}
		base = prev.baseVersion
	}
	lot.Version++
	t.put(lot.ID, &pendingWrite{lot: lot.Clone(), baseVersion: base})
	return nil
}

func (t *txLotRepo) List(ctx context.Context, f repository.LotFilter) ([]*entity.InventoryLot, error) {
	return t.store.List(ctx, f)
}

func (t *txLotRepo) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range t.order {
		w := t.writes[id]
		if w.baseVersion == 0 {
			if _, ok := s.lots[id]; ok {
				return &domain.ConflictError{Reason: "el lote " + id + " ya existe"}
			}
			continue
		}
		if err := s.checkVersionLocked(id, w.baseVersion); err != nil {
			return err
		}
	}
	for _, id := range t.order {
		s.lots[id] = t.writes[id].lot
	}
	return nil
}

func staleWithinTx(id string) error {
	return domain.NewTransientConflict("lote "+id+" con versión obsoleta en la transacción", nil)
}
