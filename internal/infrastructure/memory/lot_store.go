// Package memory adaptadores en memoria: almacén de lotes con transacciones optimistas, lock
// por lote dentro del proceso y registro de campos estático. Se usan en tests y con STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
)

var _ repository.LotRepository = (*LotStore)(nil)

// LotStore lotes en memoria. Guarda y entrega copias profundas: nadie comparte punteros con el almacén.
type LotStore struct {
	mu   sync.RWMutex
	lots map[string]*entity.InventoryLot
}

// NewLotStore crea un almacén vacío.
func NewLotStore() *LotStore {
	return &LotStore{lots: make(map[string]*entity.InventoryLot)}
}

// Create inserta el lote con version 1.
func (s *LotStore) Create(ctx context.Context, lot *entity.InventoryLot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(lot)
}

func (s *LotStore) insertLocked(lot *entity.InventoryLot) error {
	if _, ok := s.lots[lot.ID]; ok {
		return &domain.ConflictError{Reason: "el lote " + lot.ID + " ya existe"}
	}
	if lot.Version == 0 {
		lot.Version = 1
	}
	s.lots[lot.ID] = lot.Clone()
	return nil
}

// GetByID copia del lote; (nil, nil) si no existe.
func (s *LotStore) GetByID(ctx context.Context, id string) (*entity.InventoryLot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.lots[id]; ok {
		return l.Clone(), nil
	}
	return nil, nil
}

// GetForUpdate igual que GetByID: la exclusión la dan el LotLocker y el chequeo de versión.
func (s *LotStore) GetForUpdate(ctx context.Context, id string) (*entity.InventoryLot, error) {
	return s.GetByID(ctx, id)
}

// Update reemplaza el lote si la versión coincide e incrementa lot.Version.
func (s *LotStore) Update(ctx context.Context, lot *entity.InventoryLot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersionLocked(lot.ID, lot.Version); err != nil {
		return err
	}
	lot.Version++
	s.lots[lot.ID] = lot.Clone()
	return nil
}

func (s *LotStore) checkVersionLocked(id string, version int64) error {
	stored, ok := s.lots[id]
	if !ok {
		return domain.NewNotFoundError("lote", id)
	}
	if stored.Version != version {
		return domain.NewTransientConflict("lote "+id+" modificado por otra operación", nil)
	}
	return nil
}

// List lotes según filtro, ordenados por año, cultivo, ubicación y fecha de alta.
func (s *LotStore) List(ctx context.Context, f repository.LotFilter) ([]*entity.InventoryLot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []*entity.InventoryLot
	for _, l := range s.lots {
		if matches(l, f) {
			out = append(out, l.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.CropType != b.CropType {
			return a.CropType < b.CropType
		}
		if a.StorageLocation != b.StorageLocation {
			return a.StorageLocation < b.StorageLocation
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(l *entity.InventoryLot, f repository.LotFilter) bool {
	switch {
	case f.FarmID != "" && l.FarmID != f.FarmID,
		f.Year != 0 && l.Year != f.Year,
		f.CropType != "" && l.CropType != f.CropType,
		f.StorageLocation != "" && l.StorageLocation != f.StorageLocation,
		f.FieldID != "" && l.FieldID != f.FieldID:
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if l.Status == st {
			return true
		}
	}
	return false
}
