package memory

import (
	"context"
	"sync"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
)

var _ grain.FieldRegistry = (*FieldRegistry)(nil)

// FieldRegistry registro de campos en memoria.
type FieldRegistry struct {
	mu     sync.RWMutex
	fields map[string]entity.FieldRef
}

// NewFieldRegistry crea el registro con los campos dados.
func NewFieldRegistry(fields ...entity.FieldRef) *FieldRegistry {
	r := &FieldRegistry{fields: make(map[string]entity.FieldRef, len(fields))}
	for _, f := range fields {
		r.fields[f.ID] = f
	}
	return r
}

// Put agrega o reemplaza un campo.
func (r *FieldRegistry) Put(f entity.FieldRef) {
	r.mu.Lock()
	r.fields[f.ID] = f
	r.mu.Unlock()
}

// GetField devuelve el campo; (nil, nil) si no existe. farmID no filtra: el caso de uso
// compara la granja para distinguir inexistente de ajeno.
func (r *FieldRegistry) GetField(_ context.Context, _ string, fieldID string) (*entity.FieldRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[fieldID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}
