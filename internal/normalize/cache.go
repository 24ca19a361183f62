package normalize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planwise/plan-advisor/internal/model"
)

// cacheFile is the on-disk shape of one provider's cached plans.
type cacheFile struct {
	Provider string                `json:"provider"`
	SavedAt  time.Time             `json:"saved_at"`
	Plans    []model.ProcessedPlan `json:"plans"`
}

// Cache persists normalized plans per provider as JSON files, so a failed
// fetch can fall back to the last good snapshot. Writes are atomic
// (temp file + rename) and serialized per provider.
type Cache struct {
	dir       string
	freshness time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCache creates a Cache rooted at dir. Snapshots older than freshness are
// reported stale on load.
func NewCache(dir string, freshness time.Duration) *Cache {
	return &Cache{
		dir:       dir,
		freshness: freshness,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (c *Cache) providerLock(provider string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := providerFileKey(provider)
	if c.locks[key] == nil {
		c.locks[key] = &sync.Mutex{}
	}
	return c.locks[key]
}

// Save writes the provider's plans, replacing any prior snapshot.
func (c *Cache) Save(provider string, plans []model.ProcessedPlan) error {
	lock := c.providerLock(provider)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return eris.Wrapf(err, "cache: create dir %s", c.dir)
	}

	data, err := json.MarshalIndent(cacheFile{
		Provider: provider,
		SavedAt:  time.Now().UTC(),
		Plans:    plans,
	}, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s", provider)
	}

	path := c.path(provider)
	tmp, err := os.CreateTemp(c.dir, providerFileKey(provider)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "cache: write %s", provider)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "cache: close %s", provider)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "cache: replace %s", path)
	}

	zap.L().Debug("cache saved",
		zap.String("provider", provider),
		zap.Int("plans", len(plans)),
		zap.String("path", path),
	)
	return nil
}

// Load reads the provider's snapshot. The second return reports whether the
// snapshot is stale (older than the configured freshness window). A missing
// snapshot is an error.
func (c *Cache) Load(provider string) ([]model.ProcessedPlan, bool, error) {
	lock := c.providerLock(provider)
	lock.Lock()
	defer lock.Unlock()

	path := c.path(provider)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: read %s", path)
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, eris.Wrapf(err, "cache: parse %s", path)
	}

	stale := time.Since(f.SavedAt) > c.freshness
	return f.Plans, stale, nil
}

func (c *Cache) path(provider string) string {
	return filepath.Join(c.dir, providerFileKey(provider)+".json")
}

func providerFileKey(provider string) string {
	key := strings.ToLower(strings.TrimSpace(provider))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
