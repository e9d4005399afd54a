package sqlstore

import "testing"

func TestOpenDatabase(t *testing.T) {
	db, dialect, err := OpenDatabase(DriverSQLite, "file:open-database-test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	if dialect == nil {
		t.Fatalf("expected sqlite dialect")
	}

	if _, _, err := OpenDatabase("oracle", "dsn"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, _, err := OpenDatabase(DriverSQLite, "  "); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
