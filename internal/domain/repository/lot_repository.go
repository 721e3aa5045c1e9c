package repository

import (
	"context"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
)

// LotFilter filtros de listado. FarmID vacío solo lo usan procesos internos (scheduler).
type LotFilter struct {
	FarmID          string
	Year            int // 0 = todos
	CropType        string
	StorageLocation string
	FieldID         string
	Statuses        []entity.LotStatus
	Limit           int // 0 = sin límite
	Offset          int
}

// LotRepository puerto de persistencia de lotes con sus colecciones hijas.
// GetByID y GetForUpdate devuelven (nil, nil) si el lote no existe.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.InventoryLot) error
	GetByID(ctx context.Context, id string) (*entity.InventoryLot, error)
	// GetForUpdate lee el lote para modificarlo (SELECT FOR UPDATE donde el motor lo soporte).
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryLot, error)
	// Update persiste el lote si su Version coincide con la almacenada e incrementa Version.
	// Si otra escritura ganó la carrera devuelve un domain.ConflictError transitorio.
	Update(ctx context.Context, lot *entity.InventoryLot) error
	List(ctx context.Context, filter LotFilter) ([]*entity.InventoryLot, error)
}
