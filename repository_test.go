package ghola

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/seb7887/gofw/ghola/internal/testutils"
)

func newWidgetRepo(t *testing.T) (*Repository[testutils.Widget, int64], *InMemoryEngine[testutils.Widget, int64]) {
	t.Helper()
	engine := newWidgetEngine(t)
	sd := newTestSoftDelete(t)
	repo := NewRepository[testutils.Widget, int64](engine, sd, "widgets")
	return repo, engine
}

func TestRepository_DefaultReadsExcludeDeleted(t *testing.T) {
	repo, engine := newWidgetRepo(t)
	ctx := context.Background()
	seedWidgets(t, engine, []testutils.Widget{
		{ID: 1, Name: "anvil"},
		{ID: 2, Name: "hammer"},
		{ID: 3, Name: "hatchet"},
	})

	count, _, err := repo.SoftDeleteAll(ctx, From("widgets").Where(Compare("id", OpLessOrEqual, int64(2))))
	if err != nil {
		t.Fatalf("SoftDeleteAll failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows deleted, got %d", count)
	}

	t.Run("All hides deleted rows", func(t *testing.T) {
		rows, err := repo.All(ctx, nil)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(rows) != 1 || rows[0].ID != 3 {
			t.Errorf("expected only widget 3 visible, got %v", rows)
		}
	})

	t.Run("IncludeDeleted option shows everything", func(t *testing.T) {
		rows, err := repo.All(ctx, Options{IncludeDeleted: true})
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(rows) != 3 {
			t.Errorf("expected 3 rows with IncludeDeleted, got %d", len(rows))
		}
	})

	t.Run("explicit include-deleted predicate is honored", func(t *testing.T) {
		rows, err := repo.Query(ctx, From("widgets").Where(Not(IsNull("deleted_at"))), nil)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(rows) != 2 {
			t.Errorf("expected the 2 deleted rows, got %d", len(rows))
		}
	})

	t.Run("Get on deleted row misses by default", func(t *testing.T) {
		if _, err := repo.Get(ctx, 1, nil); !errors.Is(err, ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
		item, err := repo.Get(ctx, 1, Options{IncludeDeleted: true})
		if err != nil {
			t.Fatalf("Get with IncludeDeleted failed: %v", err)
		}
		if item.DeletedAt == nil {
			t.Error("expected deletion timestamp set")
		}
	})

	t.Run("Count and Exists are filtered too", func(t *testing.T) {
		count, err := repo.Count(ctx, From("widgets"), nil)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected count 1, got %d", count)
		}
		ok, err := repo.Exists(ctx, 2, nil)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if ok {
			t.Error("expected deleted row to not exist by default")
		}
	})
}

func TestRepository_SoftRestoreAll(t *testing.T) {
	repo, engine := newWidgetRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedWidgets(t, engine, []testutils.Widget{
		{ID: 1, Name: "anvil", DeletedAt: &now},
		{ID: 2, Name: "hammer", DeletedAt: &now},
		{ID: 3, Name: "hatchet"},
	})

	count, _, err := repo.SoftRestoreAll(ctx, From("widgets"))
	if err != nil {
		t.Fatalf("SoftRestoreAll failed: %v", err)
	}
	// only currently-deleted rows restored and counted
	if count != 2 {
		t.Errorf("expected 2 rows restored, got %d", count)
	}

	rows, err := repo.All(ctx, nil)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected all 3 rows visible after restore, got %d", len(rows))
	}
}

func TestRepository_SoftDeleteAllProjection(t *testing.T) {
	repo, engine := newWidgetRepo(t)
	ctx := context.Background()
	seedWidgets(t, engine, []testutils.Widget{
		{ID: 1, Name: "anvil"},
		{ID: 2, Name: "hammer"},
	})

	count, results, err := repo.SoftDeleteAll(ctx, From("widgets").Select("id"))
	if err != nil {
		t.Fatalf("SoftDeleteAll failed: %v", err)
	}
	if count != 2 || len(results) != 2 {
		t.Fatalf("expected 2 projected results, got count=%d results=%d", count, len(results))
	}
	for _, w := range results {
		if w.DeletedAt == nil {
			t.Error("expected timestamp on projected result")
		}
	}
}

func TestRepository_SoftDeleteSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("valid changeset stamps within the call window", func(t *testing.T) {
		repo, engine := newWidgetRepo(t)
		seedWidgets(t, engine, []testutils.Widget{{ID: 1, Name: "anvil"}})

		before := time.Now().UTC().Truncate(time.Microsecond)
		w := testutils.Widget{ID: 1, Name: "anvil"}
		item, err := repo.SoftDelete(ctx, Change(&w))
		after := time.Now().UTC()

		if err != nil {
			t.Fatalf("SoftDelete failed: %v", err)
		}
		if item.DeletedAt == nil {
			t.Fatal("expected deletion timestamp set")
		}
		if item.DeletedAt.Before(before) || item.DeletedAt.After(after) {
			t.Errorf("timestamp %v outside call window [%v, %v]", item.DeletedAt, before, after)
		}

		if _, err := repo.Get(ctx, 1, nil); !errors.Is(err, ErrItemNotFound) {
			t.Error("expected soft-deleted row hidden from default read")
		}
	})

	t.Run("validation failure leaves storage untouched", func(t *testing.T) {
		repo, engine := newWidgetRepo(t)
		seedWidgets(t, engine, []testutils.Widget{{ID: 1, Name: "anvil"}})

		w := testutils.Widget{ID: 1, Name: "anvil"}
		cs := Change(&w).Validate(func(c *Changeset[testutils.Widget]) {
			c.AddError("id", "locked")
		})

		_, err := repo.SoftDelete(ctx, cs)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %v", err)
		}

		item, err := repo.Get(ctx, 1, nil)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if item.DeletedAt != nil {
			t.Error("expected row untouched after validation failure")
		}
	})

	t.Run("restore clears the timestamp", func(t *testing.T) {
		repo, engine := newWidgetRepo(t)
		now := time.Now().UTC()
		seedWidgets(t, engine, []testutils.Widget{{ID: 1, Name: "anvil", DeletedAt: &now}})

		w := testutils.Widget{ID: 1, Name: "anvil", DeletedAt: &now}
		item, err := repo.SoftRestore(ctx, Change(&w))
		if err != nil {
			t.Fatalf("SoftRestore failed: %v", err)
		}
		if item.DeletedAt != nil {
			t.Error("expected timestamp cleared")
		}
		if _, err := repo.Get(ctx, 1, nil); err != nil {
			t.Errorf("expected restored row visible, got %v", err)
		}
	})
}

func TestRepository_MustVariants(t *testing.T) {
	ctx := context.Background()

	t.Run("MustSoftDelete panics on validation failure", func(t *testing.T) {
		repo, engine := newWidgetRepo(t)
		seedWidgets(t, engine, []testutils.Widget{{ID: 1, Name: "anvil"}})

		defer func() {
			p := recover()
			if p == nil {
				t.Fatal("expected panic")
			}
			if _, ok := p.(*ValidationError); !ok {
				t.Errorf("expected *ValidationError panic, got %T", p)
			}
		}()

		w := testutils.Widget{ID: 1, Name: "anvil"}
		repo.MustSoftDelete(ctx, Change(&w).Validate(func(c *Changeset[testutils.Widget]) {
			c.AddError("id", "locked")
		}))
	})

	t.Run("MustSoftRestore returns the entity on success", func(t *testing.T) {
		repo, engine := newWidgetRepo(t)
		now := time.Now().UTC()
		seedWidgets(t, engine, []testutils.Widget{{ID: 1, Name: "anvil", DeletedAt: &now}})

		w := testutils.Widget{ID: 1, Name: "anvil", DeletedAt: &now}
		item := repo.MustSoftRestore(ctx, Change(&w))
		if item.DeletedAt != nil {
			t.Error("expected timestamp cleared")
		}
	})
}

func TestRepository_CustomReadHookRunsFirst(t *testing.T) {
	engine := newWidgetEngine(t)
	sd := newTestSoftDelete(t)

	var seen []OperationKind
	repo := NewRepository[testutils.Widget, int64](engine, sd, "widgets",
		WithReadHook[testutils.Widget, int64](func(op OperationKind, q *Query, opts Options) (*Query, Options) {
			seen = append(seen, op)
			return q, opts
		}),
	)
	ctx := context.Background()
	seedWidgets(t, engine, []testutils.Widget{{ID: 1, Name: "anvil"}})

	if _, err := repo.All(ctx, nil); err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if _, err := repo.Count(ctx, From("widgets"), nil); err != nil {
		t.Fatalf("Count failed: %v", err)
	}

	if len(seen) != 2 || seen[0] != OpKindQuery || seen[1] != OpKindCount {
		t.Errorf("unexpected hook invocations: %v", seen)
	}
}

func TestRepository_UUIDEntity(t *testing.T) {
	engine, err := NewInMemoryEngine[testutils.Asset, uuid.UUID]("assets", func(a *testutils.Asset) uuid.UUID { return a.ID })
	if err != nil {
		t.Fatalf("NewInMemoryEngine failed: %v", err)
	}
	schema := NewSchema()
	if err := Register[testutils.Asset](schema, "assets"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	repo := NewRepository[testutils.Asset, uuid.UUID](engine, NewSoftDelete(schema, nil), "assets")

	ctx := context.Background()
	id := uuid.New()
	if err := repo.Insert(ctx, &testutils.Asset{ID: id, Label: "disk"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	a := testutils.Asset{ID: id, Label: "disk"}
	if _, err := repo.SoftDelete(ctx, Change(&a)); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, err := repo.Get(ctx, id, nil); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected deleted asset hidden, got %v", err)
	}
	if _, err := repo.Get(ctx, id, Options{IncludeDeleted: true}); err != nil {
		t.Errorf("expected asset visible with IncludeDeleted, got %v", err)
	}
}
