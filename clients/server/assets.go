package server

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// ── Asset Manager ──

// asset is an uploaded background image held in memory for the server's lifetime.
type asset struct {
	Name    string
	Data    []byte
	Mime    string
	Created time.Time
	seq     uint64
}

// assetInfo is the listing shape of an asset.
type assetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime"`
	Size int    `json:"size"`
	URL  string `json:"url"`
}

type assetManager struct {
	mu     sync.RWMutex
	assets map[string]*asset
	next   uint64
}

func newAssetManager() *assetManager {
	return &assetManager{assets: make(map[string]*asset)}
}

func (am *assetManager) add(name string, data []byte, mimeType string) string {
	id := randomID()
	am.mu.Lock()
	am.next++
	am.assets[id] = &asset{Name: name, Data: data, Mime: mimeType, Created: time.Now(), seq: am.next}
	am.mu.Unlock()
	return id
}

func (am *assetManager) get(id string) (*asset, bool) {
	am.mu.RLock()
	a, ok := am.assets[id]
	am.mu.RUnlock()
	return a, ok
}

// listAll returns every asset, oldest first.
func (am *assetManager) listAll() []assetInfo {
	am.mu.RLock()
	defer am.mu.RUnlock()

	ids := make([]string, 0, len(am.assets))
	for id := range am.assets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return am.assets[ids[i]].seq < am.assets[ids[j]].seq
	})

	result := make([]assetInfo, 0, len(ids))
	for _, id := range ids {
		a := am.assets[id]
		result = append(result, assetInfo{
			ID:   id,
			Name: a.Name,
			Mime: a.Mime,
			Size: len(a.Data),
			URL:  "/api/assets/" + id,
		})
	}
	return result
}

// remove deletes an asset and reports whether it existed.
func (am *assetManager) remove(id string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.assets[id]; !ok {
		return false
	}
	delete(am.assets, id)
	return true
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func extensionForMime(m string) string {
	switch {
	case strings.Contains(m, "png"):
		return ".png"
	case strings.Contains(m, "jpeg"), strings.Contains(m, "jpg"):
		return ".jpg"
	case strings.Contains(m, "gif"):
		return ".gif"
	case strings.Contains(m, "webp"):
		return ".webp"
	case strings.Contains(m, "bmp"):
		return ".bmp"
	default:
		return ""
	}
}
