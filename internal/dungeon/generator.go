package dungeon

import (
	"fmt"
	"math/rand"
	"sync"
)

// MaxEnemies caps the enemies placed in one room.
const MaxEnemies = 4

var (
	enemyTypes   = []string{"Goblin", "Skeleton", "Orc", "Wraith", "Dragon"}
	behaviors    = []string{"aggressive", "defensive", "ranged", "stealth"}
	layouts      = []string{"corridor", "arena", "maze", "treasure_room", "boss_chamber"}
	moods        = []string{"dark", "ancient", "cursed"}
	standardLoot = []string{"health_potion", "gold", "weapon_shard"}
)

// Generator builds rooms procedurally from a seeded source.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. The same seed yields the same sequence of rooms.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate builds a room for the request. The request is assumed valid.
func (g *Generator) Generate(req Request) Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := EnemyCount(req.PlayerLevel)
	enemies := make([]Enemy, 0, count)
	for i := 0; i < count; i++ {
		enemies = append(enemies, g.enemy(req.PlayerLevel))
	}

	room := Room{
		Layout:             g.pick(layouts),
		Enemies:            enemies,
		LootChests:         1 + g.rng.Intn(3),
		DifficultyModifier: Difficulty(req.PlayerLevel, req.SkillScore),
		Description:        fmt.Sprintf("A mysterious %s chamber.", g.pick(moods)),
	}

	switch req.DungeonType {
	case TypeBoss:
		room.Layout = "boss_chamber"
	case TypeTreasure:
		room.LootChests++
	}

	return room
}

// EnemyCount is min(MaxEnemies, 1 + level/3).
func EnemyCount(level int) int {
	return min(MaxEnemies, 1+level/3)
}

func (g *Generator) enemy(level int) Enemy {
	loot := make([]string, len(standardLoot))
	copy(loot, standardLoot)

	return Enemy{
		Name:     fmt.Sprintf("%s Lv.%d", g.pick(enemyTypes), level),
		Health:   50 + level*10 + g.spread(10),
		Attack:   10 + level*2 + g.spread(3),
		Defense:  5 + level + g.spread(2),
		Behavior: g.pick(behaviors),
		LootDrop: loot,
	}
}

// spread returns a value in [-n, n].
func (g *Generator) spread(n int) int {
	return g.rng.Intn(2*n+1) - n
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}
