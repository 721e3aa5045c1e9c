package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
)

// Códigos SQLSTATE que indican que reintentar la transacción puede tener éxito.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// wrapErr traduce errores de Postgres: serialización, deadlock y lock ocupado pasan a
// ConflictError transitorio; el resto se envuelve con la operación.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return &domain.ConflictError{Reason: op + ": registro duplicado", Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return domain.NewTransientConflict(op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
