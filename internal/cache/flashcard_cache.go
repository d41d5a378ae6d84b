package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"quizmint/internal/model"
)

// FlashcardCache keeps a session's flashcard list in redis for a short TTL.
// A dirty marker is set while an append is in flight so a racing read does
// not repopulate the cache with a list that is about to grow.
type FlashcardCache struct {
	client         *redisv9.Client
	cardsTTL       time.Duration
	dirtyMarkerTTL time.Duration
}

func NewFlashcardCache(client *redisv9.Client, cardsTTL, dirtyMarkerTTL time.Duration) *FlashcardCache {
	if cardsTTL <= 0 {
		cardsTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &FlashcardCache{
		client:         client,
		cardsTTL:       cardsTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *FlashcardCache) GetCards(ctx context.Context, sessionID uint) ([]model.Flashcard, bool, error) {
	key := c.cardsKey(sessionID)
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get flashcards failed: %w", err)
	}

	var cards []model.Flashcard
	if err := json.Unmarshal([]byte(raw), &cards); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached flashcards failed: %w", err)
	}
	return cards, true, nil
}

func (c *FlashcardCache) SetCards(ctx context.Context, sessionID uint, cards []model.Flashcard) error {
	key := c.cardsKey(sessionID)
	payload, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("marshal flashcard cache failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.cardsTTL).Err(); err != nil {
		return fmt.Errorf("redis set flashcards failed: %w", err)
	}
	return nil
}

func (c *FlashcardCache) DeleteCards(ctx context.Context, sessionID uint) error {
	key := c.cardsKey(sessionID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete flashcards failed: %w", err)
	}
	return nil
}

func (c *FlashcardCache) MarkDirty(ctx context.Context, sessionID uint) error {
	key := c.dirtyKey(sessionID)
	if err := c.client.Set(ctx, key, "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *FlashcardCache) IsDirty(ctx context.Context, sessionID uint) (bool, error) {
	key := c.dirtyKey(sessionID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *FlashcardCache) cardsKey(sessionID uint) string {
	return fmt.Sprintf("session:flashcards:%d", sessionID)
}

func (c *FlashcardCache) dirtyKey(sessionID uint) string {
	return fmt.Sprintf("session:flashcards:dirty:%d", sessionID)
}
