package cache

import (
	"context"
	"fmt"
	"time"
)

const processedEventPrefix = "stripe:event:"

// DefaultEventTTL is how long a processed payment event id is remembered.
const DefaultEventTTL = 72 * time.Hour

// MarkEventProcessed records eventID and reports whether this call was the first to do so.
func (c *Cache) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	first, err := c.client.SetNX(ctx, processedEventPrefix+eventID, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark event %s: %w", eventID, err)
	}
	return first, nil
}

// ForgetEvent removes the processed marker so a failed event can be retried.
func (c *Cache) ForgetEvent(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, processedEventPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("forget event %s: %w", eventID, err)
	}
	return nil
}
