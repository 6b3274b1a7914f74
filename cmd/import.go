package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/config"
	"github.com/sells-group/gst-filter/internal/db"
	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/snapshot"
)

var (
	importFrom string
	importTo   string
	importDSN  string
)

// defaultSQLitePath is used for --to sqlite when neither --dsn nor a
// sqlite snapshot.path is configured.
const defaultSQLitePath = "gst_snapshot.db"

// snapshotStore is a snapshot destination that can be migrated and
// replaced wholesale.
type snapshotStore interface {
	Migrate(ctx context.Context) error
	Replace(ctx context.Context, batch model.Batch) error
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a snapshot file into the SQLite or Postgres snapshot store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		batch, err := (&snapshot.FileSource{Path: importFrom}).Batch(ctx)
		if err != nil {
			return eris.Wrap(err, "import: read snapshot file")
		}

		var (
			dest    snapshotStore
			release func()
		)
		switch importTo {
		case config.SourceSQLite:
			s, err := snapshot.NewSQLite(sqlitePath())
			if err != nil {
				return err
			}
			dest, release = s, func() { _ = s.Close() }
		case config.SourcePostgres:
			dsn := importDSN
			if dsn == "" {
				dsn = cfg.Store.DatabaseURL
			}
			pool, err := db.Connect(ctx, dsn)
			if err != nil {
				return err
			}
			dest, release = snapshot.NewPostgres(pool), pool.Close
		default:
			return eris.Errorf("import: --to must be sqlite or postgres, got %q", importTo)
		}
		defer release()

		if err := loadSnapshot(ctx, dest, batch); err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("from", importFrom),
			zap.String("to", importTo),
			zap.Int("records", batch.Len()),
			zap.Bool("has_pincode_status", batch.HasPincodeStatus),
			zap.Bool("has_business_type", batch.HasBusinessType),
		)
		return nil
	},
}

// sqlitePath picks the SQLite destination: --dsn, then a configured sqlite
// snapshot path, then defaultSQLitePath.
func sqlitePath() string {
	if importDSN != "" {
		return importDSN
	}
	if cfg.Snapshot.Source == config.SourceSQLite && cfg.Snapshot.Path != "" {
		return cfg.Snapshot.Path
	}
	return defaultSQLitePath
}

func loadSnapshot(ctx context.Context, dest snapshotStore, batch model.Batch) error {
	if err := dest.Migrate(ctx); err != nil {
		return eris.Wrap(err, "import: migrate")
	}
	if err := dest.Replace(ctx, batch); err != nil {
		return eris.Wrap(err, "import: replace snapshot")
	}
	return nil
}

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", "", "snapshot file (.csv, .tsv, .json, .xlsx) (required)")
	importCmd.Flags().StringVar(&importTo, "to", config.SourceSQLite, "destination: sqlite or postgres")
	importCmd.Flags().StringVar(&importDSN, "dsn", "", "destination SQLite path or Postgres URL (default from config)")
	_ = importCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(importCmd)
}
