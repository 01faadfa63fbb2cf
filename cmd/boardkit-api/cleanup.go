package main

import (
	"context"
	"fmt"
	"time"

	"boardkit-api/internal/config"
	"boardkit-api/internal/database"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/repo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Cleanup expired idempotency keys and old invitations",
	Long:  `Remove idempotency keys older than 24 hours and answered or expired invitations past the retention window`,
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.OTELServiceName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	log.Info(ctx, "starting cleanup", logger.Module("cleanup"))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	keysDeleted, err := repo.NewIdempotencyRepo(pool).CleanupExpired(ctx)
	if err != nil {
		log.Error(ctx, "idempotency cleanup failed", logger.Module("cleanup"), zap.Error(err))
		return fmt.Errorf("failed to cleanup expired keys: %w", err)
	}

	cutoff := time.Now().UTC().Add(-cfg.InvitationRetention())
	invitationsDeleted, err := repo.NewInvitationRepository(pool).PurgeAnswered(ctx, cutoff)
	if err != nil {
		log.Error(ctx, "invitation cleanup failed", logger.Module("cleanup"), zap.Error(err))
		return fmt.Errorf("failed to purge invitations: %w", err)
	}

	log.Info(ctx, "cleanup completed",
		logger.Module("cleanup"),
		zap.Int64("idempotency_keys_deleted", keysDeleted),
		zap.Int64("invitations_deleted", invitationsDeleted),
		zap.Time("invitation_cutoff", cutoff),
	)
	fmt.Printf("✓ Cleanup completed: %d expired keys, %d invitations removed\n", keysDeleted, invitationsDeleted)

	return nil
}
