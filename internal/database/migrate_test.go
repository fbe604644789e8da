package database

import (
	"testing"
)

// TestMigrationsFS_ContainsAllMigrations は埋め込みマイグレーションに
// up/downのペアが揃っていることを検証する。
func TestMigrationsFS_ContainsAllMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}

	if len(entries) == 0 {
		t.Fatal("expected at least one embedded migration file")
	}
	if len(entries)%2 != 0 {
		t.Errorf("expected up/down pairs, got %d files", len(entries))
	}

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}

	required := []string{
		"000001_create_users.up.sql",
		"000001_create_users.down.sql",
		"000002_create_sessions.up.sql",
		"000002_create_sessions.down.sql",
		"000003_create_messages.up.sql",
		"000003_create_messages.down.sql",
	}
	for _, name := range required {
		if !names[name] {
			t.Errorf("missing embedded migration %s", name)
		}
	}
}

// TestNewMigrator_InvalidURL_ReturnsError は不正なDB URLでマイグレーターの生成が
// 失敗することを検証する。
func TestNewMigrator_InvalidURL_ReturnsError(t *testing.T) {
	_, err := NewMigrator("not-a-database-url")
	if err == nil {
		t.Fatal("expected error for invalid database URL, got nil")
	}
}
