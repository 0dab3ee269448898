package dungeon

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoomIsDeterministic(t *testing.T) {
	first := LocalRoom()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, LocalRoom())
	}

	assert.Equal(t, "arena", first.Layout)
	assert.Empty(t, first.Enemies)
	assert.Equal(t, 1, first.LootChests)
	assert.Equal(t, 0.5, first.DifficultyModifier)
	assert.Equal(t, "Local fallback dungeon.", first.Description)
}

func TestLocalRoomIsIndependentCopy(t *testing.T) {
	room := LocalRoom()
	room.Enemies = append(room.Enemies, Enemy{Name: "intruder"})
	room.LootChests = 99

	assert.Empty(t, LocalRoom().Enemies)
	assert.Equal(t, 1, LocalRoom().LootChests)
}

func TestLocalRoomJSON(t *testing.T) {
	data, err := json.Marshal(LocalRoom())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"layout": "arena",
		"enemies": [],
		"loot_chests": 1,
		"difficulty_modifier": 0.5,
		"description": "Local fallback dungeon."
	}`, string(data))
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"standard", Request{PlayerLevel: 3, SkillScore: 0.4, DungeonType: TypeStandard}, false},
		{"empty type defaults", Request{PlayerLevel: 1, SkillScore: 0}, false},
		{"boss", Request{PlayerLevel: 10, SkillScore: 1, DungeonType: TypeBoss}, false},
		{"max level", Request{PlayerLevel: MaxPlayerLevel, SkillScore: 0.5}, false},
		{"zero level", Request{PlayerLevel: 0, SkillScore: 0.5}, true},
		{"level above max", Request{PlayerLevel: MaxPlayerLevel + 1, SkillScore: 0.5}, true},
		{"overflowing level", Request{PlayerLevel: math.MaxInt / 5, SkillScore: 0.5}, true},
		{"skill too high", Request{PlayerLevel: 2, SkillScore: 1.5}, true},
		{"negative skill", Request{PlayerLevel: 2, SkillScore: -0.1}, true},
		{"unknown type", Request{PlayerLevel: 2, SkillScore: 0.5, DungeonType: "raid"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateFillsDefaultType(t *testing.T) {
	req := Request{PlayerLevel: 1}
	require.NoError(t, req.Validate())
	assert.Equal(t, TypeStandard, req.DungeonType)
}

func TestDifficulty(t *testing.T) {
	assert.InDelta(t, 0.1, Difficulty(1, 0), 1e-9)
	assert.InDelta(t, 0.75, Difficulty(5, 0.5), 1e-9)
	assert.InDelta(t, 1.5, Difficulty(10, 1), 1e-9)
}

func TestEnemyCount(t *testing.T) {
	tests := []struct{ level, want int }{
		{1, 1}, {2, 1}, {3, 2}, {6, 3}, {9, 4}, {30, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EnemyCount(tt.level), "level %d", tt.level)
	}
}

func TestGeneratorRanges(t *testing.T) {
	gen := NewGenerator(7)

	for level := 1; level <= 12; level++ {
		req := Request{PlayerLevel: level, SkillScore: 0.3, DungeonType: TypeStandard}
		room := gen.Generate(req)

		require.Len(t, room.Enemies, EnemyCount(level))
		assert.Contains(t, layouts, room.Layout)
		assert.GreaterOrEqual(t, room.LootChests, 1)
		assert.LessOrEqual(t, room.LootChests, 3)
		assert.InDelta(t, Difficulty(level, 0.3), room.DifficultyModifier, 1e-9)
		assert.True(t, strings.HasPrefix(room.Description, "A mysterious "))

		for _, e := range room.Enemies {
			assert.True(t, strings.HasSuffix(e.Name, " Lv."+strconv.Itoa(level)), e.Name)
			assert.InDelta(t, 50+level*10, e.Health, 10)
			assert.InDelta(t, 10+level*2, e.Attack, 3)
			assert.InDelta(t, 5+level, e.Defense, 2)
			assert.Contains(t, behaviors, e.Behavior)
			assert.Equal(t, standardLoot, e.LootDrop)
		}
	}
}

func TestGeneratorMaxLevelStatsStayPositive(t *testing.T) {
	room := NewGenerator(1).Generate(Request{PlayerLevel: MaxPlayerLevel, SkillScore: 1, DungeonType: TypeBoss})

	require.Len(t, room.Enemies, MaxEnemies)
	for _, e := range room.Enemies {
		assert.InDelta(t, 50+MaxPlayerLevel*10, e.Health, 10)
		assert.InDelta(t, 10+MaxPlayerLevel*2, e.Attack, 3)
		assert.Positive(t, e.Defense)
	}
}

func TestGeneratorSameSeedSameRooms(t *testing.T) {
	req := Request{PlayerLevel: 6, SkillScore: 0.8, DungeonType: TypeStandard}
	a := NewGenerator(1234)
	b := NewGenerator(1234)

	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Generate(req), b.Generate(req))
	}
}

func TestGeneratorDungeonTypes(t *testing.T) {
	gen := NewGenerator(99)

	for i := 0; i < 20; i++ {
		boss := gen.Generate(Request{PlayerLevel: 4, DungeonType: TypeBoss})
		assert.Equal(t, "boss_chamber", boss.Layout)

		treasure := gen.Generate(Request{PlayerLevel: 4, DungeonType: TypeTreasure})
		assert.GreaterOrEqual(t, treasure.LootChests, 2)
		assert.LessOrEqual(t, treasure.LootChests, 4)
	}
}

func TestGeneratorLootIsNotShared(t *testing.T) {
	room := NewGenerator(3).Generate(Request{PlayerLevel: 9})
	require.GreaterOrEqual(t, len(room.Enemies), 2)

	room.Enemies[0].LootDrop[0] = "cursed_ring"
	assert.Equal(t, "health_potion", room.Enemies[1].LootDrop[0])
	assert.Equal(t, "health_potion", standardLoot[0])
}

func TestGeneratorConcurrentUse(t *testing.T) {
	gen := NewGenerator(5)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				gen.Generate(Request{PlayerLevel: 1 + j%10, SkillScore: 0.5})
			}
		}()
	}
	wg.Wait()
}
