// Package dungeon defines generated dungeon rooms, the request that asks for
// one, and the generators that produce them.
package dungeon

import (
	"errors"
	"fmt"
)

// Dungeon types accepted by the generator.
const (
	TypeStandard = "standard"
	TypeBoss     = "boss"
	TypeTreasure = "treasure"
)

// MaxPlayerLevel is the highest level the generator accepts. Enemy stats
// scale linearly with level and must stay far from int overflow.
const MaxPlayerLevel = 1000

// ErrInvalidRequest is returned by Request.Validate.
var ErrInvalidRequest = errors.New("invalid dungeon request")

// Origin records where a room came from.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// Request asks the generator for a room sized to the player.
type Request struct {
	PlayerLevel int     `json:"player_level"`
	SkillScore  float64 `json:"skill_score"`
	DungeonType string  `json:"dungeon_type"`
}

// Validate checks level, skill range and dungeon type. An empty type is
// treated as standard.
func (r *Request) Validate() error {
	if r.DungeonType == "" {
		r.DungeonType = TypeStandard
	}
	if r.PlayerLevel < 1 {
		return fmt.Errorf("%w: player_level %d must be at least 1", ErrInvalidRequest, r.PlayerLevel)
	}
	if r.PlayerLevel > MaxPlayerLevel {
		return fmt.Errorf("%w: player_level %d must be at most %d", ErrInvalidRequest, r.PlayerLevel, MaxPlayerLevel)
	}
	if r.SkillScore < 0 || r.SkillScore > 1 {
		return fmt.Errorf("%w: skill_score %.2f must be within 0..1", ErrInvalidRequest, r.SkillScore)
	}
	switch r.DungeonType {
	case TypeStandard, TypeBoss, TypeTreasure:
	default:
		return fmt.Errorf("%w: unknown dungeon_type %q", ErrInvalidRequest, r.DungeonType)
	}
	return nil
}

// Enemy is a combatant placed in a generated room.
type Enemy struct {
	Name     string   `json:"name"`
	Health   int      `json:"health"`
	Attack   int      `json:"attack"`
	Defense  int      `json:"defense"`
	Behavior string   `json:"behavior"`
	LootDrop []string `json:"loot_drop"`
}

// Room is a generated dungeon room.
type Room struct {
	Layout             string  `json:"layout"`
	Enemies            []Enemy `json:"enemies"`
	LootChests         int     `json:"loot_chests"`
	DifficultyModifier float64 `json:"difficulty_modifier"`
	Description        string  `json:"description"`
}

// LocalRoom returns the fixed fallback room used when the generator service
// cannot be reached. Every call returns an equal value.
func LocalRoom() Room {
	return Room{
		Layout:             "arena",
		Enemies:            []Enemy{},
		LootChests:         1,
		DifficultyModifier: 0.5,
		Description:        "Local fallback dungeon.",
	}
}

// Difficulty is the adaptive difficulty for a player: level*0.1 + skill*0.5.
func Difficulty(level int, skill float64) float64 {
	return float64(level)*0.1 + skill*0.5
}
