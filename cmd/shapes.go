package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/db"
	"github.com/sells-group/gst-filter/internal/geo"
	"github.com/sells-group/gst-filter/internal/model"
)

var (
	shapesPath      string
	shapesLevel     string
	shapesNameField string
)

var shapesCmd = &cobra.Command{
	Use:   "shapes",
	Short: "Manage the PostGIS shape table",
}

var shapesLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load shapefile polygons into geo.gst_shapes",
	Long:  "Reads a shapefile and replaces every shape stored at --level with its polygons (SRID 4326).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		level, err := model.ParseScopeLevel(shapesLevel)
		if err != nil {
			return err
		}
		if !level.Geographic() {
			return eris.Errorf("shapes: --level must be state or city, got %q", shapesLevel)
		}
		if err := cfg.Validate("shapes"); err != nil {
			return err
		}

		shapes, err := geo.ReadShapefile(shapesPath, level, shapesNameField)
		if err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := geo.NewPostGISStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		n, err := store.LoadShapes(ctx, level, shapes)
		if err != nil {
			return err
		}

		zap.L().Info("shapes loaded",
			zap.String("shp", shapesPath),
			zap.String("level", string(level)),
			zap.Int("read", len(shapes)),
			zap.Int64("stored", n),
		)
		return nil
	},
}

func init() {
	shapesLoadCmd.Flags().StringVar(&shapesPath, "shp", "", "path to .shp file (required)")
	shapesLoadCmd.Flags().StringVar(&shapesLevel, "level", "city", "shape level: state or city")
	shapesLoadCmd.Flags().StringVar(&shapesNameField, "name-field", "NAME", "DBF attribute holding the shape name")
	_ = shapesLoadCmd.MarkFlagRequired("shp")
	shapesCmd.AddCommand(shapesLoadCmd)
	rootCmd.AddCommand(shapesCmd)
}
