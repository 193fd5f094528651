package store

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/zupervisor-project/zupervisor-go/internal/config"
	"github.com/zupervisor-project/zupervisor-go/pkg/logger"
)

// Provider is the contract for store backends. Stores hold the shared
// runtime resources the host exposes to plugins; access must be safe for
// concurrent use by the request path and the plugin runtime service.
type Provider interface {
	InitStores()
	GetValue(storeName, key string) (interface{}, bool)
	StoreValue(storeName, key string, value interface{})
	GetAllValues(storeName, keyPrefix string) map[string]interface{}
	DeleteValue(storeName, key string)
	DeleteStore(storeName string)
}

// Store is a handle to one named store.
type Store struct {
	name     string
	provider Provider
}

// Open returns a handle to a specific store.
func Open(storeName string) *Store {
	return &Store{
		name:     storeName,
		provider: provider,
	}
}

// GetValue retrieves a value from the store.
func (s *Store) GetValue(key string) (interface{}, bool) {
	return s.provider.GetValue(s.name, key)
}

// StoreValue stores a value in the store.
func (s *Store) StoreValue(key string, value interface{}) {
	s.provider.StoreValue(s.name, key, value)
}

// GetAllValues retrieves all values from the store with an optional prefix.
func (s *Store) GetAllValues(keyPrefix string) map[string]interface{} {
	return s.provider.GetAllValues(s.name, keyPrefix)
}

// DeleteValue removes a value from the store.
func (s *Store) DeleteValue(key string) {
	s.provider.DeleteValue(s.name, key)
}

// provider is the process-wide store backend.
var provider Provider

// InitProvider selects and initialises the store backend from
// ZUPERVISOR_STORE_DRIVER. Unrecognised or empty values select the
// in-memory backend.
func InitProvider() {
	switch os.Getenv("ZUPERVISOR_STORE_DRIVER") {
	case "store-dynamodb":
		provider = &DynamoDBProvider{}
	case "store-redis":
		provider = &RedisProvider{}
	default:
		provider = &InMemoryProvider{}
	}
	provider.InitStores()
}

// GetProvider returns the process-wide store backend.
func GetProvider() Provider {
	return provider
}

// Preload populates stores declared in the host configuration.
func Preload(configDir string, cfg *config.Config) {
	for storeName, definition := range cfg.Stores {
		if definition.PreloadFile != "" {
			preloadFromFile(storeName, configDir, definition.PreloadFile)
		}
		if len(definition.PreloadData) > 0 {
			preloadFromInline(storeName, definition.PreloadData)
		}
	}
}

func preloadFromFile(storeName, configDir, file string) {
	path := file
	if !strings.HasPrefix(path, "/") {
		path = configDir + "/" + file
	}
	logger.Infof("preloading store '%s' from file: %s", storeName, path)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warnf("failed to read %s: %v", path, err)
		return
	}
	var items map[string]interface{}
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warnf("invalid JSON in %s: %v", path, err)
		return
	}

	s := Open(storeName)
	for k, v := range items {
		s.StoreValue(k, v)
	}
}

func preloadFromInline(storeName string, data map[string]interface{}) {
	logger.Infof("preloading store '%s' from inline data", storeName)
	s := Open(storeName)
	for k, v := range data {
		s.StoreValue(k, v)
	}
}

// DeleteStore removes the entire store.
func DeleteStore(storeName string) {
	provider.DeleteStore(storeName)
}

func getKeyPrefix() string {
	return os.Getenv("ZUPERVISOR_STORE_KEY_PREFIX")
}

func applyKeyPrefix(key string) string {
	if prefix := getKeyPrefix(); prefix != "" {
		return prefix + "." + key
	}
	return key
}

func removeKeyPrefix(key string) string {
	if prefix := getKeyPrefix(); prefix != "" {
		return strings.TrimPrefix(key, prefix+".")
	}
	return key
}
