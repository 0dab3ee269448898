// Package combat holds the player-side action handler: tap-to-move and
// melee attacks against entities owned by the hosting application.
package combat

import (
	"errors"
	"sync"

	"github.com/lawnchairsociety/cloudquest/internal/dungeon"
	"github.com/lawnchairsociety/cloudquest/internal/logger"
)

// ErrInvalidTarget is returned when an attack has no target.
var ErrInvalidTarget = errors.New("invalid attack target")

// Position is a point in world space. Z is zero for 2D hosts.
type Position struct {
	X, Y, Z float64
}

// Entity is any combat participant. The hosting application owns it;
// attacks mutate it in place.
type Entity struct {
	Name     string
	Health   int
	Defense  int
	Attack   int
	LootDrop []string
}

// Stats are the acting player's own numbers, fixed at construction.
type Stats struct {
	MoveSpeed float64
	Health    int
	Attack    int
}

// DefaultStats matches a fresh level 1 character.
func DefaultStats() Stats {
	return Stats{MoveSpeed: 5.0, Health: 100, Attack: 20}
}

// AttackResult reports what a single attack did.
type AttackResult struct {
	Damage          int
	RemainingHealth int
	Defeated        bool
}

// Defeat reports a defeated entity and what it dropped.
type Defeat struct {
	Name string
	Loot []string
}

// Option configures a Handler.
type Option func(*Handler)

// WithDefeatHandler registers a callback run once per defeating attack.
func WithDefeatHandler(fn func(Defeat)) Option {
	return func(h *Handler) {
		h.onDefeat = fn
	}
}

// Handler turns player input into movement intent and attacks.
type Handler struct {
	stats    Stats
	onDefeat func(Defeat)

	mu          sync.Mutex
	destination *Position
}

// NewHandler creates a handler for a player with the given stats.
func NewHandler(stats Stats, opts ...Option) *Handler {
	h := &Handler{stats: stats}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stats returns the player's stats.
func (h *Handler) Stats() Stats {
	return h.stats
}

// OnTap handles a tap at pos and starts a move there.
func (h *Handler) OnTap(pos Position) <-chan struct{} {
	logger.Debug("Tap received", "x", pos.X, "y", pos.Y, "z", pos.Z)
	return h.MoveTo(pos)
}

// MoveTo records the move destination. There is no interpolation yet, so the
// returned completion channel is already closed.
func (h *Handler) MoveTo(target Position) <-chan struct{} {
	h.mu.Lock()
	h.destination = &target
	h.mu.Unlock()

	logger.Debug("Moving to destination", "x", target.X, "y", target.Y, "z", target.Z, "speed", h.stats.MoveSpeed)

	done := make(chan struct{})
	close(done)
	return done
}

// Destination returns the last requested move target.
func (h *Handler) Destination() (Position, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destination == nil {
		return Position{}, false
	}
	return *h.destination, true
}

// Damage is attack minus defense, never less than 1.
func Damage(attack, defense int) int {
	return max(1, attack-defense)
}

// AttackEnemy strikes target once. When the hit leaves the target at or
// below zero health the defeat path runs exactly once.
func (h *Handler) AttackEnemy(target *Entity) (AttackResult, error) {
	if target == nil {
		return AttackResult{}, ErrInvalidTarget
	}

	damage := Damage(h.stats.Attack, target.Defense)
	target.Health -= damage

	logger.Info("Attack landed", "target", target.Name, "damage", damage, "health", target.Health)

	result := AttackResult{
		Damage:          damage,
		RemainingHealth: target.Health,
	}
	if target.Health <= 0 {
		h.OnEnemyDefeated(target)
		result.Defeated = true
	}
	return result, nil
}

// OnEnemyDefeated reports a defeat and its loot. The entity stays wherever
// the hosting application keeps it.
func (h *Handler) OnEnemyDefeated(target *Entity) Defeat {
	defeat := Defeat{Name: target.Name, Loot: target.LootDrop}

	logger.Info("Enemy defeated", "target", target.Name, "loot", target.LootDrop)

	if h.onDefeat != nil {
		h.onDefeat(defeat)
	}
	return defeat
}

// EntitiesFromRoom builds fresh entities for every enemy in a room.
func EntitiesFromRoom(room dungeon.Room) []*Entity {
	entities := make([]*Entity, 0, len(room.Enemies))
	for _, e := range room.Enemies {
		loot := make([]string, len(e.LootDrop))
		copy(loot, e.LootDrop)
		entities = append(entities, &Entity{
			Name:     e.Name,
			Health:   e.Health,
			Defense:  e.Defense,
			Attack:   e.Attack,
			LootDrop: loot,
		})
	}
	return entities
}
