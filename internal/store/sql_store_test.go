package store

import "testing"

func TestDriverForKnownAliases(t *testing.T) {
	cases := map[string]string{
		"sqlite":     "sqlite",
		"sqlite3":    "sqlite",
		"postgres":   "postgres",
		"postgresql": "postgres",
		"mysql":      "mysql",
		"mssql":      "sqlserver",
		"sqlserver":  "sqlserver",
	}
	for alias, want := range cases {
		got, err := driverFor(alias)
		if err != nil {
			t.Errorf("driverFor(%q) returned an error: %v", alias, err)
		}
		if got != want {
			t.Errorf("driverFor(%q) = %q, want %q", alias, got, want)
		}
	}
}

func TestDriverForUnknownKindErrors(t *testing.T) {
	if _, err := driverFor("oracle"); err == nil {
		t.Error("expected an error for an unsupported database kind")
	}
}

func TestPlaceholderRewriteForPostgres(t *testing.T) {
	s := &SQLStore{dbType: "postgres"}
	got := s.ph("SELECT * FROM t WHERE a = ? AND b = ?")
	want := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got != want {
		t.Errorf("ph() = %q, want %q", got, want)
	}
}

func TestPlaceholderRewriteLeavesOtherBackendsUnchanged(t *testing.T) {
	s := &SQLStore{dbType: "mysql"}
	query := "SELECT * FROM t WHERE a = ?"
	if got := s.ph(query); got != query {
		t.Errorf("ph() = %q, want unchanged %q", got, query)
	}
}
