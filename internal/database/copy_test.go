package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lawnchairsociety/cloudquest/internal/config"
	"github.com/lawnchairsociety/cloudquest/internal/dungeon"
)

func TestCopyGenerationsDryRunIntoUnmigratedTarget(t *testing.T) {
	src := openTestDB(t)
	ctx := context.Background()
	req := dungeon.Request{PlayerLevel: 2, SkillScore: 0.5, DungeonType: dungeon.TypeStandard}
	if _, err := src.RecordGeneration(ctx, req, dungeon.LocalRoom(), ""); err != nil {
		t.Fatal(err)
	}

	cfg := config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "target.db")}
	dst, err := OpenWithoutMigrations(cfg)
	if err != nil {
		t.Fatalf("OpenWithoutMigrations: %v", err)
	}
	defer dst.Close()

	stats, err := CopyGenerations(ctx, src, dst, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if stats.Copied != 1 {
		t.Errorf("dry run counted %d, want 1", stats.Copied)
	}

	var count int
	if err := dst.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'dungeon_generations'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("dry run created the target table")
	}
}

func TestCopyGenerations(t *testing.T) {
	src := openTestDB(t)
	dst := openTestDB(t)
	ctx := context.Background()
	gen := dungeon.NewGenerator(3)

	for level := 1; level <= 4; level++ {
		req := dungeon.Request{PlayerLevel: level, SkillScore: 0.3, DungeonType: dungeon.TypeBoss}
		if _, err := src.RecordGeneration(ctx, req, gen.Generate(req), "192.0.2.1"); err != nil {
			t.Fatal(err)
		}
	}

	dry, err := CopyGenerations(ctx, src, dst, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if dry.Copied != 4 {
		t.Errorf("dry run counted %d, want 4", dry.Copied)
	}
	if recent, _ := dst.RecentGenerations(ctx, 10); len(recent) != 0 {
		t.Fatalf("dry run wrote %d records", len(recent))
	}

	stats, err := CopyGenerations(ctx, src, dst, false)
	if err != nil {
		t.Fatalf("CopyGenerations: %v", err)
	}
	if stats.Copied != 4 || stats.Skipped != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}

	want, _ := src.RecentGenerations(ctx, 10)
	got, err := dst.RecentGenerations(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("copied %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Room.Layout != want[i].Room.Layout ||
			len(got[i].Room.Enemies) != len(want[i].Room.Enemies) {
			t.Errorf("record %d differs: got %+v want %+v", i, got[i], want[i])
		}
	}

	// A second run finds everything already present.
	again, err := CopyGenerations(ctx, src, dst, false)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if again.Copied != 0 || again.Skipped != 4 {
		t.Errorf("rerun stats %+v, want all skipped", again)
	}
}
