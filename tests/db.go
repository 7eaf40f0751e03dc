package testutil

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/storage/database"
)

// PrepareDB opens and migrates the Postgres test database, and empties it once the test is done.
// Skipped unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) (*sqlx.DB, *core.Config) {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST not set: skipping postgres tests")
	}
	t.Setenv("ENV", "TEST")
	conf := core.NewConfig()

	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}

	t.Cleanup(func() {
		// everything else cascades
		if _, err := db.Exec("TRUNCATE app_setting, teacher, student, class CASCADE"); err != nil {
			t.Errorf("PrepareDB() cleanup failed: %v", err)
		}
		_ = db.Close()
	})
	return db, conf
}

// SeedClass inserts a bare class row and returns its id.
func SeedClass(t *testing.T, db *sqlx.DB, name string) string {
	t.Helper()
	id := uuid.New().String()
	if _, err := db.Exec("INSERT INTO class (id, name) VALUES ($1, $2)", id, name); err != nil {
		t.Fatalf("SeedClass() failed: %v", err)
	}
	return id
}

// SeedSession inserts a scheduled session of class and returns its id.
func SeedSession(t *testing.T, db *sqlx.DB, classID, date, start string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(
		"INSERT INTO class_session (id, class_id, session_date, start_time) VALUES ($1, $2, $3, $4)",
		id, classID, date, start,
	)
	if err != nil {
		t.Fatalf("SeedSession() failed: %v", err)
	}
	return id
}
