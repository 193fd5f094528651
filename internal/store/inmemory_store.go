package store

import (
	"strings"
	"sync"
)

// InMemoryProvider keeps stores in process memory. Safe for concurrent use;
// the request path and plugin runtime service share it.
type InMemoryProvider struct {
	mu     sync.RWMutex
	stores map[string]map[string]interface{}
}

func (p *InMemoryProvider) InitStores() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stores = make(map[string]map[string]interface{})
}

func (p *InMemoryProvider) GetValue(storeName, key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.stores[storeName]
	if !ok {
		return nil, false
	}
	val, found := s[applyKeyPrefix(key)]
	return val, found
}

func (p *InMemoryProvider) StoreValue(storeName, key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[storeName]
	if !ok {
		s = make(map[string]interface{})
		p.stores[storeName] = s
	}
	s[applyKeyPrefix(key)] = value
}

func (p *InMemoryProvider) GetAllValues(storeName, keyPrefix string) map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.stores[storeName]
	if !ok {
		return nil
	}
	prefixed := applyKeyPrefix(keyPrefix)
	result := make(map[string]interface{})
	for k, v := range s {
		if strings.HasPrefix(k, prefixed) {
			result[removeKeyPrefix(k)] = v
		}
	}
	return result
}

func (p *InMemoryProvider) DeleteValue(storeName, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.stores[storeName]; ok {
		delete(s, applyKeyPrefix(key))
	}
}

func (p *InMemoryProvider) DeleteStore(storeName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stores, storeName)
}
