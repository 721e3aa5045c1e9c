package grain

import (
	"context"
	"fmt"
	"time"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
)

// RetryPolicy reintentos con backoff exponencial acotado para conflictos transitorios
// (carrera de versión perdida, lock no obtenido, serialización de Postgres).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy valores usados si la configuración no indica otros.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, BaseDelay: 20 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

// Do ejecuta fn hasta MaxAttempts veces mientras el error sea transitorio.
// Los errores de negocio se devuelven en el primer intento.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !domain.IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(i)):
		}
	}
	return &domain.ConflictError{Reason: fmt.Sprintf("sin éxito tras %d intentos", attempts), Err: err}
}
