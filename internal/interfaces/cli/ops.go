package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/turtacn/SeqQuant/internal/infrastructure/database/redis"
	"github.com/turtacn/SeqQuant/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// NewCacheCmd creates the cache command group.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the redis latent vector cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every cached latent vector",
		Long: "Delete every cached latent vector. Run it after replacing an encoder\n" +
			"artifact, since cache keys only name the encoder, not its weights.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			rc := cliCtx.Config.Redis
			if !rc.Enabled {
				return errors.New(errors.ErrCodeValidation, "redis is disabled in the configuration")
			}
			ctx, cancel := cliCtx.WithTimeout(cmd.Context())
			defer cancel()

			client, err := redis.NewClient(rc, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer client.Close()

			cache := redis.NewVectorCache(redis.NewRedisCache(client, cliCtx.Logger, redis.WithPrefix(rc.KeyPrefix)), rc.CacheTTL, cliCtx.Logger)
			n, err := cache.Purge(ctx)
			if err != nil {
				return err
			}
			cliCtx.Logger.Info("latent cache purged", logging.Int64("deleted", n))
			PrintSuccess(cmd, fmt.Sprintf("deleted %d cached vectors", n))
			return nil
		},
	})
	return cmd
}

// NewTopicsCmd creates the topics command group.
func NewTopicsCmd() *cobra.Command {
	var replication int

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage the kafka encode-job topics",
	}
	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Create the request, result and dead-letter topics when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kc := cliCtx.Config.Kafka
			ctx, cancel := cliCtx.WithTimeout(cmd.Context())
			defer cancel()

			mgr, err := kafka.NewTopicManager(kc.Brokers, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer mgr.Close()

			topics := kafka.EncodeTopics(kc.RequestTopic, kc.ResultTopic, kc.DLQTopic, replication)
			if err := mgr.EnsureTopics(ctx, topics); err != nil {
				return err
			}
			for _, t := range topics {
				PrintSuccess(cmd, fmt.Sprintf("topic %s (%d partitions)", t.Name, t.NumPartitions))
			}
			return nil
		},
	}
	ensure.Flags().IntVar(&replication, "replication", 1, "replication factor")
	cmd.AddCommand(ensure)
	return cmd
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (v versionInfo) TableHeaders() []string { return []string{"FIELD", "VALUE"} }

func (v versionInfo) TableRows() [][]string {
	return [][]string{
		{"version", v.Version},
		{"commit", v.Commit},
		{"build_date", v.BuildDate},
		{"go_version", v.GoVersion},
		{"platform", v.Platform},
	}
}

func (v versionInfo) String() string {
	return fmt.Sprintf("seqquant %s (commit: %s, built: %s, %s %s)", v.Version, v.Commit, v.BuildDate, v.GoVersion, v.Platform)
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, versionInfo{
				Version:   Version,
				Commit:    GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			})
		},
	}
}
