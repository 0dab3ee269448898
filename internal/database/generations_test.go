package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lawnchairsociety/cloudquest/internal/config"
	"github.com/lawnchairsociety/cloudquest/internal/dungeon"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	cfg := config.DefaultConfig().Database
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nested", "dungeons.db")

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(dir, "a", "b", "test.db")}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(cfg.SQLitePath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM dungeon_generations").Scan(&count); err != nil {
		t.Errorf("Failed to query dungeon_generations table: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "test.db")}

	for i := 0; i < 2; i++ {
		db, err := Open(cfg)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		db.Close()
	}
}

func TestOpenWithoutMigrationsLeavesSchemaAlone(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "fresh.db")}

	db, err := OpenWithoutMigrations(cfg)
	if err != nil {
		t.Fatalf("OpenWithoutMigrations: %v", err)
	}
	defer db.Close()

	var count int
	err = db.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'dungeon_generations'`).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 0 {
		t.Error("OpenWithoutMigrations should not create dungeon_generations")
	}
}

func TestRecordAndListGenerations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	gen := dungeon.NewGenerator(11)

	var ids []string
	for level := 1; level <= 3; level++ {
		req := dungeon.Request{PlayerLevel: level, SkillScore: 0.5, DungeonType: dungeon.TypeStandard}
		room := gen.Generate(req)

		g, err := db.RecordGeneration(ctx, req, room, "10.0.0.1")
		if err != nil {
			t.Fatalf("RecordGeneration: %v", err)
		}
		if g.ID == "" {
			t.Fatal("expected generated ID")
		}
		ids = append(ids, g.ID)
		time.Sleep(2 * time.Millisecond)
	}

	recent, err := db.RecentGenerations(ctx, 2)
	if err != nil {
		t.Fatalf("RecentGenerations: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}

	// Newest first
	if recent[0].ID != ids[2] || recent[1].ID != ids[1] {
		t.Errorf("unexpected order: got %s, %s", recent[0].ID, recent[1].ID)
	}

	latest := recent[0]
	if latest.Request.PlayerLevel != 3 || latest.Request.DungeonType != dungeon.TypeStandard {
		t.Errorf("request not round-tripped: %+v", latest.Request)
	}
	if len(latest.Room.Enemies) != dungeon.EnemyCount(3) {
		t.Errorf("expected %d enemies, got %d", dungeon.EnemyCount(3), len(latest.Room.Enemies))
	}
	if latest.ClientIP != "10.0.0.1" {
		t.Errorf("client ip = %q", latest.ClientIP)
	}
	if latest.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestRecentGenerationsEmpty(t *testing.T) {
	db := openTestDB(t)

	recent, err := db.RecentGenerations(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentGenerations: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("expected no records, got %d", len(recent))
	}
}

func TestLayoutCounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	req := dungeon.Request{PlayerLevel: 2, SkillScore: 0.1, DungeonType: dungeon.TypeStandard}

	for i := 0; i < 3; i++ {
		if _, err := db.RecordGeneration(ctx, req, dungeon.LocalRoom(), ""); err != nil {
			t.Fatal(err)
		}
	}
	maze := dungeon.LocalRoom()
	maze.Layout = "maze"
	if _, err := db.RecordGeneration(ctx, req, maze, ""); err != nil {
		t.Fatal(err)
	}

	counts, err := db.LayoutCounts(ctx)
	if err != nil {
		t.Fatalf("LayoutCounts: %v", err)
	}
	if counts["arena"] != 3 || counts["maze"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}
