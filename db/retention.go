package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// RetentionPolicy defines how stored history is pruned.
type RetentionPolicy struct {
	// KeepDays: mentions older than this many days are deleted (0 = keep forever)
	KeepDays int
	// MaxChannels: the recent-channel list is capped at this many rows (0 = disabled)
	MaxChannels int
	// DryRun: when true, log what would be pruned but don't delete
	DryRun bool
	// Interval: how often the sweep runs
	Interval time.Duration
}

// LoadRetentionPolicy builds the policy from the configured mention
// retention plus environment overrides.
func LoadRetentionPolicy(keepDays int) RetentionPolicy {
	policy := RetentionPolicy{
		KeepDays:    keepDays,
		MaxChannels: 50,
		Interval:    6 * time.Hour,
	}

	if s := os.Getenv("RETENTION_MAX_CHANNELS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			policy.MaxChannels = n
		}
	}

	if os.Getenv("RETENTION_DRY_RUN") == "1" {
		policy.DryRun = true
	}

	if s := os.Getenv("RETENTION_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			policy.Interval = d
		}
	}

	return policy
}

// StartRetentionJob periodically prunes old mentions and excess channel
// rows according to the policy. It blocks until ctx is cancelled.
func StartRetentionJob(ctx context.Context, dbx *sql.DB, policy RetentionPolicy) {
	if policy.KeepDays == 0 && policy.MaxChannels == 0 {
		slog.Info("retention job disabled (no policy configured)")
		return
	}

	slog.Info("retention job starting",
		slog.Int("keep_days", policy.KeepDays),
		slog.Int("max_channels", policy.MaxChannels),
		slog.Bool("dry_run", policy.DryRun),
		slog.Duration("interval", policy.Interval))

	// Run immediately on start
	if _, _, err := runRetentionSweep(ctx, dbx, policy); err != nil {
		slog.Warn("retention sweep failed", slog.Any("err", err))
	}

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention job stopped")
			return
		case <-ticker.C:
			if _, _, err := runRetentionSweep(ctx, dbx, policy); err != nil {
				slog.Warn("retention sweep failed", slog.Any("err", err))
			}
		}
	}
}

// runRetentionSweep performs a single pruning cycle and reports how many
// mention and channel rows it removed (or would remove, in dry-run mode).
func runRetentionSweep(ctx context.Context, dbx *sql.DB, policy RetentionPolicy) (mentions, channels int64, err error) {
	logger := slog.Default().With(
		slog.String("component", "retention"),
		slog.Bool("dry_run", policy.DryRun),
	)

	if policy.KeepDays > 0 {
		cutoff := formatTime(time.Now().Add(-time.Duration(policy.KeepDays) * 24 * time.Hour))
		if policy.DryRun {
			row := dbx.QueryRowContext(ctx, `SELECT COUNT(*) FROM mentions WHERE created_at < ?`, cutoff)
			if err := row.Scan(&mentions); err != nil {
				return 0, 0, fmt.Errorf("count stale mentions: %w", err)
			}
		} else {
			res, err := dbx.ExecContext(ctx, `DELETE FROM mentions WHERE created_at < ?`, cutoff)
			if err != nil {
				return 0, 0, fmt.Errorf("prune mentions: %w", err)
			}
			mentions, _ = res.RowsAffected()
		}
	}

	if policy.MaxChannels > 0 {
		keep := `SELECT login FROM channels ORDER BY last_joined DESC LIMIT ?`
		if policy.DryRun {
			row := dbx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM channels WHERE login NOT IN (`+keep+`)`, policy.MaxChannels)
			if err := row.Scan(&channels); err != nil {
				return mentions, 0, fmt.Errorf("count excess channels: %w", err)
			}
		} else {
			res, err := dbx.ExecContext(ctx,
				`DELETE FROM channels WHERE login NOT IN (`+keep+`)`, policy.MaxChannels)
			if err != nil {
				return mentions, 0, fmt.Errorf("prune channels: %w", err)
			}
			channels, _ = res.RowsAffected()
		}
	}

	if mentions > 0 || channels > 0 {
		mode := "pruned"
		if policy.DryRun {
			mode = "dry-run: would prune"
		}
		logger.Info("retention sweep completed",
			slog.String("mode", mode),
			slog.Int64("mentions", mentions),
			slog.Int64("channels", channels))
	}

	return mentions, channels, nil
}
