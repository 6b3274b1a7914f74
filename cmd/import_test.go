//go:build !integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gst-filter/internal/config"
	"github.com/sells-group/gst-filter/internal/snapshot"
)

func TestImportCmd_Metadata(t *testing.T) {
	assert.Equal(t, "import", importCmd.Use)
	assert.NotEmpty(t, importCmd.Short)

	require.NotNil(t, importCmd.Flags().Lookup("from"))
	toFlag := importCmd.Flags().Lookup("to")
	require.NotNil(t, toFlag)
	assert.Equal(t, "sqlite", toFlag.DefValue)
}

func TestImportCmd_SQLiteThenFilter(t *testing.T) {
	dir := useFileSnapshot(t)
	dbPath := filepath.Join(dir, "gst.db")

	importFrom = cfg.Snapshot.Path
	importTo = config.SourceSQLite
	importDSN = dbPath
	t.Cleanup(func() { importFrom, importTo, importDSN = "", config.SourceSQLite, "" })

	importCmd.SetContext(context.Background())
	require.NoError(t, importCmd.RunE(importCmd, nil))

	src, err := snapshot.NewSQLite(dbPath)
	require.NoError(t, err)
	batch, err := src.Batch(context.Background())
	require.NoError(t, err)
	require.NoError(t, src.Close())
	assert.Equal(t, 4, batch.Len())
	assert.True(t, batch.HasPincodeStatus)

	// Filtering the imported store gives the same answer as the file.
	cfg.Snapshot.Source = config.SourceSQLite
	cfg.Snapshot.Path = dbPath
	filterHSN = "1001"
	out, err := runFilter(t)
	require.NoError(t, err)
	assert.Contains(t, out, "2 records")
}

func TestImportCmd_UnknownDestination(t *testing.T) {
	useFileSnapshot(t)
	importFrom = cfg.Snapshot.Path
	importTo = "mysql"
	t.Cleanup(func() { importFrom, importTo = "", config.SourceSQLite })

	importCmd.SetContext(context.Background())
	err := importCmd.RunE(importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--to must be sqlite or postgres")
}

func TestImportCmd_BadSourcePath(t *testing.T) {
	useFileSnapshot(t)
	importFrom = filepath.Join(t.TempDir(), "missing.csv")
	t.Cleanup(func() { importFrom = "" })

	importCmd.SetContext(context.Background())
	err := importCmd.RunE(importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import: read snapshot file")
}

func TestImportCmd_PostgresWithoutURL(t *testing.T) {
	useFileSnapshot(t)
	importFrom = cfg.Snapshot.Path
	importTo = config.SourcePostgres
	t.Cleanup(func() { importFrom, importTo = "", config.SourceSQLite })

	importCmd.SetContext(context.Background())
	err := importCmd.RunE(importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database_url configured")
}

func TestSQLitePath(t *testing.T) {
	cfg = &config.Config{}
	importDSN = ""
	assert.Equal(t, defaultSQLitePath, sqlitePath())

	cfg.Snapshot.Source = config.SourceSQLite
	cfg.Snapshot.Path = "/data/gst.db"
	assert.Equal(t, "/data/gst.db", sqlitePath())

	importDSN = "other.db"
	t.Cleanup(func() { importDSN = "" })
	assert.Equal(t, "other.db", sqlitePath())
}

func TestShapesLoad_RejectsSnapshotLevel(t *testing.T) {
	cfg = &config.Config{}
	shapesLevel = "snapshot"
	t.Cleanup(func() { shapesLevel = "city" })

	shapesLoadCmd.SetContext(context.Background())
	err := shapesLoadCmd.RunE(shapesLoadCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--level must be state or city")
}

func TestShapesLoad_NeedsDatabase(t *testing.T) {
	cfg = &config.Config{}
	shapesLevel = "state"
	t.Cleanup(func() { shapesLevel = "city" })

	shapesLoadCmd.SetContext(context.Background())
	err := shapesLoadCmd.RunE(shapesLoadCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestInitFilterEnv_ShapefileBackendMissingFile(t *testing.T) {
	useFileSnapshot(t)
	cfg.Geo.Backend = config.GeoShapefile
	cfg.Geo.Shapefiles = []config.ShapefileConfig{{
		Path: filepath.Join(os.TempDir(), "does-not-exist.shp"), Level: "city", NameField: "NAME",
	}}

	_, err := initFilterEnv(context.Background(), "filter", nil)
	require.Error(t, err)
}
