// Package redis lock por lote compartido entre procesos (varias instancias del servicio).
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

var _ grain.LotLocker = (*LotLocker)(nil)

const lockKeyPrefix = "lock:grain-lot:"

// Connect crea el cliente y hace Ping con backoff exponencial (tope 30s) hasta maxAttempts.
func Connect(ctx context.Context, addr string, maxAttempts int, log *logger.Logger) (*goredis.Client, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rdb := goredis.NewClient(&goredis.Options{Addr: addr, PoolSize: 50})
		if lastErr = rdb.Ping(ctx).Err(); lastErr == nil {
			log.Info().Str("addr", addr).Int("attempt", attempt).Msg("conectado a redis")
			return rdb, nil
		}
		_ = rdb.Close()
		if attempt == maxAttempts {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Warn().Err(lastErr).Str("addr", addr).Int("attempt", attempt).Dur("retry_in", sleep).Msg("redis no disponible")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("conectar redis %s: %w", addr, lastErr)
}

// LotLocker lock por lote sobre redislock. Si no se obtiene dentro de la espera configurada
// devuelve un conflicto transitorio para que el reintento de la capa de aplicación decida.
type LotLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewLotLocker ttl es la vida máxima del lock (protege contra procesos caídos); wait cuánto
// esperar a que otro proceso lo suelte.
func NewLotLocker(rdb *goredis.Client, ttl, wait time.Duration) *LotLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LotLocker{locker: redislock.New(rdb), ttl: ttl, wait: wait}
}

// Lock obtiene lock:grain-lot:<id>.
func (l *LotLocker) Lock(ctx context.Context, lotID string) (func(), error) {
	opts := &redislock.Options{}
	if l.wait > 0 {
		const step = 50 * time.Millisecond
		opts.RetryStrategy = redislock.LimitRetry(redislock.LinearBackoff(step), int(l.wait/step))
	}
	lock, err := l.locker.Obtain(ctx, lockKeyPrefix+lotID, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.NewTransientConflict("lote "+lotID+" bloqueado por otra operación", err)
	}
	if err != nil {
		return nil, fmt.Errorf("obtener lock de lote: %w", err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// el ctx del llamador puede estar cancelado; liberar igual
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = lock.Release(rctx)
		})
	}, nil
}
