package migrations_test

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"sort"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-moderation/migrations"
)

func TestMigrationsApplyToSQLite(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	ctx := context.Background()

	filesystems := migrations.Filesystems()
	require.NotEmpty(t, filesystems)
	for _, fsys := range filesystems {
		require.NoError(t, applyFilesystem(ctx, db, fsys))
	}

	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='moderation_queue'").Scan(&tableName)
	require.NoError(t, err)
	require.Equal(t, "moderation_queue", tableName)

	require.NoError(t, migrations.ValidateQueueSchema(ctx, db, "sqlite3"))
}

func TestValidateQueueSchemaReportsMissing(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	ctx := context.Background()

	err := migrations.ValidateQueueSchema(ctx, db, "sqlite")
	var schemaErr *migrations.SchemaValidationError
	require.True(t, errors.As(err, &schemaErr))
	require.Equal(t, []string{"moderation_queue"}, schemaErr.MissingTables)

	_, err = db.ExecContext(ctx, "CREATE TABLE moderation_queue (id TEXT PRIMARY KEY, queue_name TEXT, status TEXT)")
	require.NoError(t, err)

	err = migrations.ValidateQueueSchema(ctx, db, "sqlite")
	require.True(t, errors.As(err, &schemaErr))
	require.Empty(t, schemaErr.MissingTables)
	require.Contains(t, schemaErr.MissingColumns["moderation_queue"], "foreign_id")
	require.Contains(t, err.Error(), "missing columns")

	err = migrations.ValidateQueueSchema(ctx, db, "sqlite", migrations.WithSchemaChecks([]migrations.SchemaCheck{
		{Table: "moderation_queue", Columns: []string{"id", "status"}},
	}))
	require.NoError(t, err)

	require.Error(t, migrations.ValidateQueueSchema(ctx, db, "oracle"))
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func applyFilesystem(ctx context.Context, db *sql.DB, filesystem fs.FS) error {
	entries, err := fs.Glob(filesystem, "sqlite/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(entries)
	for _, entry := range entries {
		sqlBytes, err := fs.ReadFile(filesystem, entry)
		if err != nil {
			return err
		}
		for _, stmt := range splitStatements(string(sqlBytes)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func splitStatements(sql string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}
	parts := strings.Split(strings.Join(lines, "\n"), ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
