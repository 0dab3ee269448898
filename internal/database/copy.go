package database

import (
	"context"
	"fmt"
)

// CopyStats summarizes a CopyGenerations run.
type CopyStats struct {
	Copied  int64
	Skipped int64 // Already present in the destination
}

// CopyGenerations copies every record from src into dst, oldest first.
// Records whose ID already exists in dst are skipped, so reruns are safe.
// With dryRun set nothing is written and every record counts as copied.
func CopyGenerations(ctx context.Context, src, dst *Database, dryRun bool) (CopyStats, error) {
	var stats CopyStats

	err := src.EachGeneration(ctx, func(g Generation) error {
		if dryRun {
			stats.Copied++
			return nil
		}
		if err := dst.insertGeneration(ctx, &g); err != nil {
			if dst.dialect.IsDuplicateKeyError(err) {
				stats.Skipped++
				return nil
			}
			return fmt.Errorf("copying generation %s: %w", g.ID, err)
		}
		stats.Copied++
		return nil
	})
	return stats, err
}
