package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const asyncTimeout = 200 * time.Millisecond

// AsyncCacheDelete elimina de caché en background sin bloquear al llamador.
// Usa su propio contexto: la petición original puede haber terminado ya.
func AsyncCacheDelete(c Cache, key string, log *zap.Logger) {
	if c == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()

		if err := c.Delete(ctx, key); err != nil {
			log.Warn("Cache deletion failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}()
}

// SetWithTimeout guarda en caché acotando la espera; los fallos solo se registran.
func SetWithTimeout(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration, log *zap.Logger) {
	if c == nil {
		return
	}
	cacheCtx, cancel := context.WithTimeout(ctx, asyncTimeout)
	defer cancel()

	if err := c.Set(cacheCtx, key, value, ttl); err != nil {
		log.Warn("Cache update failed",
			zap.String("key", key),
			zap.Error(err))
	}
}
