package storage

import "testing"

func TestNewStoreDefaultsToMemory(t *testing.T) {
	store, err := NewStore("", "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}
}

func TestNewStoreRejectsUnknownBackend(t *testing.T) {
	if _, err := NewStore("etcd", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
