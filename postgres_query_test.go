package ghola

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seb7887/gofw/ghola/internal/testutils"
)

// Helper to create an engine for SQL formation testing
func createQueryTestEngine(t *testing.T, tableName string) *PostgresEngine[testutils.Widget, int64] {
	t.Helper()
	mockPool := &pgxpool.Pool{} // Won't be used for actual queries in these tests
	engine, err := NewPostgresEngine[testutils.Widget, int64](
		mockPool,
		tableName,
		func(w *testutils.Widget) int64 { return w.ID },
	)
	if err != nil {
		t.Fatalf("Failed to create test engine: %s", err)
	}
	return engine
}

func TestPostgresEngine_SelectSQL(t *testing.T) {
	engine := createQueryTestEngine(t, "widgets")

	tests := []struct {
		name     string
		query    *Query
		wantSQL  string
		wantArgs []any
	}{
		{
			"no predicates",
			From("widgets"),
			`SELECT "id", "name", "deleted_at" FROM "widgets"`,
			nil,
		},
		{
			"is null clause",
			From("widgets").Where(IsNull("deleted_at")),
			`SELECT "id", "name", "deleted_at" FROM "widgets" WHERE "deleted_at" IS NULL`,
			nil,
		},
		{
			"comparison and negated is null",
			From("widgets").
				Where(Compare("id", OpEqual, int64(5))).
				Where(Not(IsNull("deleted_at"))),
			`SELECT "id", "name", "deleted_at" FROM "widgets" WHERE "id" = $1 AND "deleted_at" IS NOT NULL`,
			[]any{int64(5)},
		},
		{
			"negated comparison",
			From("widgets").Where(Not(Compare("name", OpEqual, "anvil"))),
			`SELECT "id", "name", "deleted_at" FROM "widgets" WHERE NOT ("name" = $1)`,
			[]any{"anvil"},
		},
		{
			"disjunction group",
			From("widgets").Where(Or(Compare("id", OpEqual, int64(1)), Compare("name", OpLike, "ha%"))),
			`SELECT "id", "name", "deleted_at" FROM "widgets" WHERE ("id" = $1 OR "name" LIKE $2)`,
			[]any{int64(1), "ha%"},
		},
		{
			"projection with ordering and paging",
			From("widgets").Select("id", "name").OrderBy("name", SortDesc).Limit(10).Offset(20),
			`SELECT "id", "name" FROM "widgets" ORDER BY "name" DESC LIMIT 10 OFFSET 20`,
			nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := engine.selectSQL(tc.query)
			if err != nil {
				t.Fatalf("selectSQL failed: %v", err)
			}
			if sql != tc.wantSQL {
				t.Errorf("SQL mismatch:\nExpected: %s\nGot: %s", tc.wantSQL, sql)
			}
			if len(args) != len(tc.wantArgs) {
				t.Fatalf("expected %d args, got %d", len(tc.wantArgs), len(args))
			}
			for i := range args {
				if args[i] != tc.wantArgs[i] {
					t.Errorf("arg[%d] = %v, want %v", i, args[i], tc.wantArgs[i])
				}
			}
		})
	}
}

func TestPostgresEngine_CountSQL(t *testing.T) {
	engine := createQueryTestEngine(t, "widgets")

	sql, args, err := engine.countSQL(From("widgets").Where(IsNull("deleted_at")))
	if err != nil {
		t.Fatalf("countSQL failed: %v", err)
	}
	expected := `SELECT COUNT(*) FROM "widgets" WHERE "deleted_at" IS NULL`
	if sql != expected {
		t.Errorf("SQL mismatch:\nExpected: %s\nGot: %s", expected, sql)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestPostgresEngine_UpdateAllSQL(t *testing.T) {
	engine := createQueryTestEngine(t, "widgets")

	t.Run("set clause binds before where clause", func(t *testing.T) {
		sql, args, returning, err := engine.updateAllSQL(
			From("widgets").Where(Compare("id", OpGreaterThan, int64(10))),
			[]FieldChange{{Field: "deleted_at", Value: "stamp"}},
		)
		if err != nil {
			t.Fatalf("updateAllSQL failed: %v", err)
		}
		expected := `UPDATE "widgets" SET "deleted_at" = $1 WHERE "id" > $2`
		if sql != expected {
			t.Errorf("SQL mismatch:\nExpected: %s\nGot: %s", expected, sql)
		}
		if len(args) != 2 || args[0] != "stamp" || args[1] != int64(10) {
			t.Errorf("unexpected args: %v", args)
		}
		if returning != nil {
			t.Errorf("expected no returning columns, got %v", returning)
		}
	})

	t.Run("projection becomes RETURNING", func(t *testing.T) {
		sql, _, returning, err := engine.updateAllSQL(
			From("widgets").Select("id"),
			[]FieldChange{{Field: "deleted_at", Value: nil}},
		)
		if err != nil {
			t.Fatalf("updateAllSQL failed: %v", err)
		}
		expected := `UPDATE "widgets" SET "deleted_at" = $1 RETURNING "id"`
		if sql != expected {
			t.Errorf("SQL mismatch:\nExpected: %s\nGot: %s", expected, sql)
		}
		if len(returning) != 1 || returning[0] != "id" {
			t.Errorf("unexpected returning columns: %v", returning)
		}
	})

	t.Run("unknown change field errors", func(t *testing.T) {
		_, _, _, err := engine.updateAllSQL(From("widgets"), []FieldChange{{Field: "bogus", Value: 1}})
		if err == nil {
			t.Error("expected error for unknown field")
		}
	})

	t.Run("no changes errors", func(t *testing.T) {
		_, _, _, err := engine.updateAllSQL(From("widgets"), nil)
		if err == nil {
			t.Error("expected error for empty change list")
		}
	})
}

func TestPostgresEngine_SQLValidation(t *testing.T) {
	engine := createQueryTestEngine(t, "widgets")

	t.Run("unsupported operator", func(t *testing.T) {
		_, _, err := engine.selectSQL(From("widgets").Where(Compare("id", "; DROP TABLE", 1)))
		if err == nil {
			t.Error("expected error for unsupported operator")
		}
	})

	t.Run("invalid field identifier", func(t *testing.T) {
		_, _, err := engine.selectSQL(From("widgets").Where(IsNull(`deleted"; --`)))
		if err == nil {
			t.Error("expected error for invalid identifier")
		}
	})

	t.Run("unknown projection column", func(t *testing.T) {
		_, _, err := engine.selectSQL(From("widgets").Select("bogus"))
		if err == nil {
			t.Error("expected error for unknown projection column")
		}
	})

	t.Run("invalid table name at construction", func(t *testing.T) {
		_, err := NewPostgresEngine[testutils.Widget, int64](&pgxpool.Pool{}, "wid gets", func(w *testutils.Widget) int64 { return w.ID })
		if err == nil {
			t.Error("expected error for invalid table name")
		}
	})
}
