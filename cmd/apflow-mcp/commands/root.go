package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"apflow-mcp/internal/approval"
	"apflow-mcp/internal/config"
	"apflow-mcp/internal/logging"
	"apflow-mcp/internal/mcp"
	"apflow-mcp/internal/notify"
	"apflow-mcp/internal/store"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "apflow-mcp",
	Short: "apflow-mcp is an approval-workflow intelligence MCP server",
	Long: `An MCP server for construction approval workflows: rejection-risk scoring,
approver routing, timeline prediction and stalled-item escalation, backed by
the project's historical approval ledger.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("apflow-mcp starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		db, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		publisher, err := notify.Connect(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer publisher.Close()

		tables := approval.DefaultTables()
		resolver := approval.NewResolver(db, cfg.ReadTimeout)

		server := mcp.NewServer(
			approval.NewRiskAnalyzer(tables, resolver, db, db, cfg.ReadTimeout),
			approval.NewRouter(tables, resolver, db, db, cfg.ReadTimeout),
			approval.NewTimelinePredictor(tables, db, db, cfg.ReadTimeout),
			approval.NewEscalator(tables, resolver, db, db, publisher, cfg.ReadTimeout),
		)

		log.Info().Msg("MCP Server starting Stdio loop")
		return server.Serve()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
