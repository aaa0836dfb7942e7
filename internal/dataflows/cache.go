package dataflows

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// PayloadCache keeps raw provider responses on disk, one file per
// (function, symbol), for ttl.
type PayloadCache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	now     func() time.Time
}

type cachedPayload struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

func NewPayloadCache(dir string, ttl time.Duration, enabled bool) *PayloadCache {
	return &PayloadCache{
		dir:     dir,
		ttl:     ttl,
		enabled: enabled && dir != "" && ttl > 0,
		now:     time.Now,
	}
}

func (c *PayloadCache) path(function, symbol string) string {
	sum := sha256.Sum256([]byte(function + "|" + symbol))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+".json")
}

// Load returns the cached payload, or false when missing, stale or unreadable.
func (c *PayloadCache) Load(function, symbol string) (json.RawMessage, bool) {
	if !c.enabled {
		return nil, false
	}
	data, err := os.ReadFile(c.path(function, symbol))
	if err != nil {
		return nil, false
	}
	var entry cachedPayload
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if c.now().Sub(entry.FetchedAt) > c.ttl {
		return nil, false
	}
	return entry.Payload, true
}

func (c *PayloadCache) Store(function, symbol string, payload json.RawMessage) error {
	if !c.enabled {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(cachedPayload{FetchedAt: c.now(), Payload: payload})
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(function, symbol), data, 0o644)
}
