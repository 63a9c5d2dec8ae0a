package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Cache persists the notification feed as a single JSON document on
// disk. It is scoped to the installation, not to the owner, and its
// read-modify-write cycles are last-write-wins.
type Cache struct {
	mu   sync.Mutex
	path string
}

func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// GetAll reads the whole feed. A missing file is an empty feed.
func (c *Cache) GetAll() ([]Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notification cache: %w", err)
	}

	var items []Notification
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode notification cache: %w", err)
	}
	return items, nil
}

// SetAll replaces the whole feed.
func (c *Cache) SetAll(items []Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notification cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create notification cache directory: %w", err)
	}

	// Write-then-rename keeps readers from seeing a torn file.
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write notification cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace notification cache: %w", err)
	}
	return nil
}

// Clear wipes the feed entirely.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("clear notification cache: %w", err)
	}
	return nil
}
