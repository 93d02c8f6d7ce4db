package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tluanga-dev/rental-manager-sub003/internal/application/inventory"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
)

var _ inventory.StockCache = (*StockCache)(nil)

const (
	levelKeyPrefix = "stock_level:"
	txnKeyPrefix   = "stock_txn:"
)

// StockCache snapshots de agregados y marcadores de idempotencia sobre Redis.
// Es una optimización de lectura: la BD sigue siendo la fuente de verdad y un
// Redis caído no debe tumbar ninguna operación.
type StockCache struct {
	client *redis.Client
}

// New construye el cache y verifica la conexión.
func New(ctx context.Context, addr, password string, db int) (*StockCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &StockCache{client: client}, nil
}

// Close cierra la conexión subyacente.
func (c *StockCache) Close() error {
	return c.client.Close()
}

func levelKey(itemID, locationID string) string {
	return levelKeyPrefix + itemID + ":" + locationID
}

// GetLevel devuelve el snapshot cacheado o nil en cache miss.
func (c *StockCache) GetLevel(ctx context.Context, itemID, locationID string) (*entity.StockLevel, error) {
	raw, err := c.client.Get(ctx, levelKey(itemID, locationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached level: %w", err)
	}
	var level entity.StockLevel
	if err := json.Unmarshal([]byte(raw), &level); err != nil {
		// Snapshot corrupto: descartarlo y tratar como miss.
		_ = c.client.Del(ctx, levelKey(itemID, locationID)).Err()
		return nil, nil
	}
	return &level, nil
}

// SetLevel guarda el snapshot con TTL corto.
func (c *StockCache) SetLevel(ctx context.Context, level *entity.StockLevel, ttl time.Duration) error {
	raw, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("marshal level: %w", err)
	}
	return c.client.Set(ctx, levelKey(level.ItemID, level.LocationID), raw, ttl).Err()
}

// InvalidateLevel descarta el snapshot tras una mutación.
func (c *StockCache) InvalidateLevel(ctx context.Context, itemID, locationID string) error {
	return c.client.Del(ctx, levelKey(itemID, locationID)).Err()
}

// MarkTransaction marca un transaction_id con SetNX. Devuelve false si ya estaba
// marcado: reenvío probable, a confirmar contra el ledger.
func (c *StockCache) MarkTransaction(ctx context.Context, transactionID string, ttl time.Duration) (bool, error) {
	fresh, err := c.client.SetNX(ctx, txnKeyPrefix+transactionID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark transaction: %w", err)
	}
	return fresh, nil
}
