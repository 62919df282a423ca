// Package cache stores compiled artifacts keyed by source text, heap size,
// and target, so repeated compilations of the same program against the
// same options skip straight to a stored binary. Grounded on the sqlite
// persistence layer of the tool this compiler's ambient stack is adapted
// from: gorm.Open backed by a pure-Go sqlite driver, AutoMigrate for
// schema setup, and a Config struct describing the on-disk file.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	gorm "gorm.io/gorm"
)

// Config describes where the cache database lives.
type Config struct {
	Path string
	Name string
}

// Artifact is one cached compilation result.
type Artifact struct {
	ID        uint `gorm:"primarykey"`
	Key       string `gorm:"uniqueIndex"`
	Target    string
	Bytes     []byte
	CreatedAt time.Time
}

// Cache wraps a gorm.DB scoped to the Artifact schema.
type Cache struct {
	Config *Config
	DB     *gorm.DB
}

// Open creates or attaches to the cache database at config.Path/config.Name
// and ensures the schema exists.
func Open(config *Config) (*Cache, error) {
	if config == nil {
		return nil, fmt.Errorf("cache: config cannot be nil")
	}
	if len(config.Path) == 0 || len(config.Name) == 0 {
		return nil, fmt.Errorf("cache: path and name must be set")
	}

	dsn := filepath.Join(config.Path, config.Name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cache: open failed: %w", err)
	}
	db = db.Session(&gorm.Session{PrepareStmt: true})

	if err := db.AutoMigrate(&Artifact{}); err != nil {
		return nil, fmt.Errorf("cache: migrate failed: %w", err)
	}

	return &Cache{Config: config, DB: db}, nil
}

// Close releases the underlying database connection.
func (c *Cache) Close() error {
	sqldb, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}

// Key derives the cache lookup key from the trimmed source, the heap size,
// and the compilation target.
func Key(trimmedSource string, heapSize int, target string) string {
	h := sha256.New()
	h.Write([]byte(trimmedSource))
	fmt.Fprintf(h, "\x00%d\x00%s", heapSize, target)
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached artifact bytes for key, if present.
func (c *Cache) Lookup(key string) ([]byte, bool, error) {
	var a Artifact
	result := c.DB.Where("key = ?", key).First(&a)
	if result.Error != nil {
		if gorm.ErrRecordNotFound == result.Error {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: lookup failed: %w", result.Error)
	}
	return a.Bytes, true, nil
}

// Store saves artifact bytes under key, overwriting any prior entry.
func (c *Cache) Store(key, target string, data []byte) error {
	a := Artifact{Key: key, Target: target, Bytes: data}
	result := c.DB.Where("key = ?", key).Assign(Artifact{Bytes: data, Target: target}).FirstOrCreate(&a)
	if result.Error != nil {
		return fmt.Errorf("cache: store failed: %w", result.Error)
	}
	return nil
}
