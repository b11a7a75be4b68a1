package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	crmquery "github.com/goliatone/go-crmquery"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}
	seen := map[string]bool{}
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		seen[entry.Dialect] = true
	}
	if !seen[DialectPostgres] || !seen[DialectSQLite] {
		t.Fatalf("expected both dialects, got %v", seen)
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	reg, err := Register(context.Background(), func(_ context.Context, dialect string, label string, _ fs.FS) error {
		calls = append(calls, dialect+":"+label)
		return nil
	}, WithValidationTargets(" SQLite "), WithDialectSourceLabel("host-app"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(calls) != 1 || calls[0] != "sqlite:host-app" {
		t.Fatalf("expected single sqlite registration, got %v", calls)
	}
	if reg.SourceLabel != "host-app" {
		t.Fatalf("unexpected source label %q", reg.SourceLabel)
	}
}

func TestRegister_PropagatesCallbackError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Register(context.Background(), func(context.Context, string, string, fs.FS) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected missing register function error")
	}
}

func TestMigrationPairs_ExistForBothDialects(t *testing.T) {
	root := crmquery.GetMigrationsFS()
	for _, name := range []string{"00001_crm_customer_profiles", "00002_crm_query_audit"} {
		for _, dir := range []string{"data/sql/migrations", "data/sql/migrations/sqlite"} {
			for _, suffix := range []string{".up.sql", ".down.sql"} {
				path := dir + "/" + name + suffix
				content, err := fs.ReadFile(root, path)
				if err != nil {
					t.Fatalf("read migration %s: %v", path, err)
				}
				if strings.TrimSpace(string(content)) == "" {
					t.Fatalf("expected migration %s to have SQL content", path)
				}
			}
		}
	}
}

func TestSQLiteProfileMigrations_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:migrations-profiles-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	sqliteMigrations, err := fs.Sub(crmquery.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	ctx := context.Background()
	for _, migration := range []string{"00001_crm_customer_profiles.up.sql", "00002_crm_query_audit.up.sql"} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("apply %s: %v", migration, err)
		}
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO crm_customers (id, external_id) VALUES ('c-1', 'cust-1')`); err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	insertAttr := `INSERT INTO crm_customer_attributes (id, customer_id, name, value) VALUES (?, 'c-1', 'effective_account_number', 'A100')`
	if _, err := db.ExecContext(ctx, insertAttr, "a-1"); err != nil {
		t.Fatalf("insert attribute: %v", err)
	}
	if _, err := db.ExecContext(ctx, insertAttr, "a-2"); err == nil {
		t.Fatalf("expected unique (customer_id, name) violation")
	}

	for _, migration := range []string{"00002_crm_query_audit.down.sql", "00001_crm_customer_profiles.down.sql"} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("rollback %s: %v", migration, err)
		}
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name LIKE 'crm_%'`).Scan(&count); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected all crm tables dropped, got %d", count)
	}
}

func TestDialectFor(t *testing.T) {
	cases := map[string]string{"sqlite3": DialectSQLite, "SQLite": DialectSQLite, "postgres": DialectPostgres, "pgx": DialectPostgres}
	for driver, want := range cases {
		if got := DialectFor(driver); got != want {
			t.Fatalf("DialectFor(%q) = %q, want %q", driver, got, want)
		}
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, name string) error {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	for _, statement := range strings.Split(string(content), ";") {
		if strings.TrimSpace(statement) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
