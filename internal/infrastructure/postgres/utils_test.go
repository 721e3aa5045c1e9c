package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
)

func TestWrapErr_CodigosDePostgres(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		transient bool
		conflict  bool
	}{
		{"serialización", "40001", true, true},
		{"deadlock", "40P01", true, true},
		{"lock no disponible", "55P03", true, true},
		{"duplicado", "23505", false, true},
		{"check violado", "23514", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapErr("actualizar lote", &pgconn.PgError{Code: tt.code, Message: "x"})

			assert.Equal(t, tt.transient, domain.IsTransient(err))
			assert.Equal(t, tt.conflict, errors.Is(err, domain.ErrConflict))
			var pgErr *pgconn.PgError
			assert.True(t, errors.As(err, &pgErr), "el error original se conserva")
		})
	}
}

func TestWrapErr_NilYErroresGenericos(t *testing.T) {
	assert.NoError(t, wrapErr("op", nil))

	base := errors.New("conexión cerrada")
	err := wrapErr("listar lotes", base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "listar lotes: conexión cerrada", err.Error())
	assert.False(t, domain.IsTransient(err))
}
