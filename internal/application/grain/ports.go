package grain

import (
	"context"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de almacenamiento, pasando el
// repositorio de lotes atado a esa transacción. Commit si fn devuelve nil, rollback si no.
type TxRunner interface {
	Run(ctx context.Context, fn func(lotRepo repository.LotRepository) error) error
}

// LotLocker serializa las mutaciones de un mismo lote. unlock es idempotente.
type LotLocker interface {
	Lock(ctx context.Context, lotID string) (unlock func(), err error)
}

// FieldRegistry consulta el registro de campos (colaborador externo).
// Devuelve (nil, nil) si el campo no existe.
type FieldRegistry interface {
	GetField(ctx context.Context, farmID, fieldID string) (*entity.FieldRef, error)
}
