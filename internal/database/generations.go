package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawnchairsociety/cloudquest/internal/dungeon"
)

// Generation is one recorded room.
type Generation struct {
	ID        string          `json:"id"`
	Request   dungeon.Request `json:"request"`
	Room      dungeon.Room    `json:"room"`
	ClientIP  string          `json:"client_ip,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// RecordGeneration stores a generated room and returns the stored record.
func (d *Database) RecordGeneration(ctx context.Context, req dungeon.Request, room dungeon.Room, clientIP string) (*Generation, error) {
	g := &Generation{
		ID:        uuid.NewString(),
		Request:   req,
		Room:      room,
		ClientIP:  clientIP,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.insertGeneration(ctx, g); err != nil {
		return nil, fmt.Errorf("recording generation: %w", err)
	}
	return g, nil
}

func (d *Database) insertGeneration(ctx context.Context, g *Generation) error {
	payload, err := json.Marshal(g.Room)
	if err != nil {
		return fmt.Errorf("encoding room: %w", err)
	}

	_, err = d.db.ExecContext(ctx, d.qb.Build(`
		INSERT INTO dungeon_generations
			(id, player_level, skill_score, dungeon_type, layout, enemy_count,
			 loot_chests, difficulty, description, payload, client_ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), g.ID, g.Request.PlayerLevel, g.Request.SkillScore, g.Request.DungeonType, g.Room.Layout, len(g.Room.Enemies),
		g.Room.LootChests, g.Room.DifficultyModifier, g.Room.Description, string(payload), g.ClientIP, g.CreatedAt)
	return err
}

// RecentGenerations returns up to limit records, newest first.
func (d *Database) RecentGenerations(ctx context.Context, limit int) ([]Generation, error) {
	rows, err := d.db.QueryContext(ctx, d.qb.Build(`
		SELECT id, player_level, skill_score, dungeon_type, payload, client_ip, created_at
		FROM dungeon_generations
		ORDER BY created_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Generation
	err = scanGenerations(rows, func(g Generation) error {
		out = append(out, g)
		return nil
	})
	return out, err
}

// EachGeneration calls fn for every record, oldest first, stopping at the first error.
func (d *Database) EachGeneration(ctx context.Context, fn func(Generation) error) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, player_level, skill_score, dungeon_type, payload, client_ip, created_at
		FROM dungeon_generations
		ORDER BY created_at ASC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	return scanGenerations(rows, fn)
}

func scanGenerations(rows *sql.Rows, fn func(Generation) error) error {
	for rows.Next() {
		var g Generation
		var payload string
		if err := rows.Scan(&g.ID, &g.Request.PlayerLevel, &g.Request.SkillScore, &g.Request.DungeonType,
			&payload, &g.ClientIP, &g.CreatedAt); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(payload), &g.Room); err != nil {
			return fmt.Errorf("decoding room %s: %w", g.ID, err)
		}
		if err := fn(g); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LayoutCounts returns how many rooms were generated per layout.
func (d *Database) LayoutCounts(ctx context.Context) (map[string]int, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT layout, COUNT(*)
		FROM dungeon_generations
		GROUP BY layout
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var layout string
		var n int
		if err := rows.Scan(&layout, &n); err != nil {
			return nil, err
		}
		counts[layout] = n
	}
	return counts, rows.Err()
}
