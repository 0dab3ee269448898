// Command cloudquest is a headless game host: it requests a room for the
// player, falling back to the local room when the service is down, and then
// fights through the room's enemies.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lawnchairsociety/cloudquest/internal/combat"
	"github.com/lawnchairsociety/cloudquest/internal/config"
	"github.com/lawnchairsociety/cloudquest/internal/dungeonclient"
	"github.com/lawnchairsociety/cloudquest/internal/logger"
)

// maxSwings stops a fight that could otherwise never end.
const maxSwings = 1000

func main() {
	configFile := flag.String("config", "data/server.yaml", "Path to config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	apiURL := flag.String("api", "", "Dungeon service base URL (overrides config)")
	level := flag.Int("level", 1, "Player progression level")
	skill := flag.Float64("skill", 0.5, "Player skill score (0..1)")
	dungeonType := flag.String("type", "", "Dungeon type: standard, boss or treasure")
	flag.Parse()

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.Client.BaseURL = *apiURL
	}
	if *dungeonType != "" {
		cfg.Client.DungeonType = *dungeonType
	}

	provider := dungeonclient.New(cfg.Client)
	provider.SetProgressionLevel(*level)
	provider.SetSkillScore(*skill)

	// Bound the whole request even if the configured timeout is zero.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.Timeout()+5*time.Second)
	defer cancel()

	result := provider.Generate(ctx)
	room := result.Room

	fmt.Printf("Room (%s): %s\n", result.Origin, room.Description)
	if result.Err != nil {
		fmt.Printf("  service unavailable: %v\n", result.Err)
	}
	fmt.Printf("  layout=%s chests=%d difficulty=%.2f enemies=%d\n",
		room.Layout, room.LootChests, room.DifficultyModifier, len(room.Enemies))

	var loot []string
	player := combat.NewHandler(combat.DefaultStats(), combat.WithDefeatHandler(func(d combat.Defeat) {
		loot = append(loot, d.Loot...)
		fmt.Printf("  %s defeated, dropped %v\n", d.Name, d.Loot)
	}))

	for i, enemy := range provider.ActiveEntities() {
		<-player.OnTap(combat.Position{X: float64(i), Z: 1})
		swings := 0
		for enemy.Health > 0 && swings < maxSwings {
			res, err := player.AttackEnemy(enemy)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Attack failed: %v\n", err)
				os.Exit(1)
			}
			swings++
			fmt.Printf("  hit %s for %d (%d left)\n", enemy.Name, res.Damage, res.RemainingHealth)
		}
	}

	fmt.Printf("Room cleared, %d items looted\n", len(loot))
}
