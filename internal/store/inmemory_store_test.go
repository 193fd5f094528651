package store

import (
	"testing"
)

func setupInMemoryTest(t *testing.T) *InMemoryProvider {
	provider := &InMemoryProvider{}
	provider.InitStores()
	return provider
}

func TestInMemoryProvider(t *testing.T) {
	provider := setupInMemoryTest(t)

	t.Run("StoreAndGetValue", func(t *testing.T) {
		provider.StoreValue("test", "key1", "value1")
		val, found := provider.GetValue("test", "key1")
		if !found {
			t.Error("Expected to find value but got not found")
		}
		if val != "value1" {
			t.Errorf("Expected value1 but got %v", val)
		}
	})

	t.Run("GetNonExistentValue", func(t *testing.T) {
		_, found := provider.GetValue("test", "nonexistent")
		if found {
			t.Error("Expected not found for nonexistent key")
		}
	})

	t.Run("GetNonExistentStore", func(t *testing.T) {
		_, found := provider.GetValue("missing-store", "key1")
		if found {
			t.Error("Expected not found for nonexistent store")
		}
	})

	t.Run("GetAllValues", func(t *testing.T) {
		provider.DeleteStore("test")

		provider.StoreValue("test", "prefix.key1", "value1")
		provider.StoreValue("test", "prefix.key2", "value2")
		provider.StoreValue("test", "other.key3", "value3")

		values := provider.GetAllValues("test", "prefix")
		if len(values) != 2 {
			t.Errorf("Expected 2 values but got %d. Values: %v", len(values), values)
		}
		if values["prefix.key1"] != "value1" || values["prefix.key2"] != "value2" {
			t.Errorf("Unexpected values: %v", values)
		}
		if _, ok := values["other.key3"]; ok {
			t.Errorf("other.key3 should not be included. All values: %v", values)
		}
	})

	t.Run("DeleteValue", func(t *testing.T) {
		provider.StoreValue("test", "key1", "value1")
		provider.DeleteValue("test", "key1")
		_, found := provider.GetValue("test", "key1")
		if found {
			t.Error("Value should have been deleted")
		}
	})

	t.Run("DeleteStore", func(t *testing.T) {
		provider.StoreValue("test", "key1", "value1")
		provider.DeleteStore("test")
		_, found := provider.GetValue("test", "key1")
		if found {
			t.Error("Store should have been deleted")
		}
	})

	t.Run("StoreComplexValue", func(t *testing.T) {
		complexValue := map[string]interface{}{
			"name": "test",
			"age":  30,
		}
		provider.StoreValue("test", "complex", complexValue)
		val, found := provider.GetValue("test", "complex")
		if !found {
			t.Error("Expected to find complex value")
		}
		mapVal, ok := val.(map[string]interface{})
		if !ok {
			t.Fatal("Expected map type for complex value")
		}
		if mapVal["name"] != "test" || mapVal["age"] != 30 {
			t.Error("Complex value not stored correctly")
		}
	})
}

func TestInMemoryProvider_Concurrency(t *testing.T) {
	provider := setupInMemoryTest(t)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := "key"
			value := "value"
			provider.StoreValue("test", key, value)
			_, _ = provider.GetValue("test", key)
			_ = provider.GetAllValues("test", "key")
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
