package docstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/testutil"
)

type doc struct {
	ID    string   `bson:"_id"`
	Name  string   `bson:"name"`
	Tags  []string `bson:"tags"`
	Count int      `bson:"count"`
}

// exercise runs the shared contract against any Documents implementation.
func exercise(t *testing.T, d docstore.Documents) {
	t.Helper()
	ctx := context.Background()

	if err := d.Create(ctx, "things", "a", doc{ID: "a", Name: "first", Tags: []string{"x", "y"}, Count: 1}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := d.Create(ctx, "things", "a", doc{ID: "a", Name: "again"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate Create kind = %q, want conflict", apperr.KindOf(err))
	}

	var got doc
	if err := d.Fetch(ctx, "things", "a", &got); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Name != "first" || len(got.Tags) != 2 {
		t.Errorf("Fetch = %+v", got)
	}

	// Partial update replaces arrays whole and leaves other fields alone.
	if err := d.PartialUpdate(ctx, "things", "a", docstore.Fields{"tags": []string{"z"}}); err != nil {
		t.Fatalf("PartialUpdate: %v", err)
	}
	got = doc{}
	if err := d.Fetch(ctx, "things", "a", &got); err != nil {
		t.Fatalf("Fetch after update: %v", err)
	}
	if got.Name != "first" || got.Count != 1 {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "z" {
		t.Errorf("tags = %v, want [z]", got.Tags)
	}

	err = d.PartialUpdate(ctx, "things", "missing", docstore.Fields{"name": "x"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("update missing kind = %q, want not_found", apperr.KindOf(err))
	}

	if err := d.Delete(ctx, "things", "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err = d.Fetch(ctx, "things", "a", &got)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Fetch after delete kind = %q, want not_found", apperr.KindOf(err))
	}
	if err := d.Delete(ctx, "things", "a"); err != nil {
		t.Errorf("Delete of missing document: %v", err)
	}
}

func TestMemory_Contract(t *testing.T) {
	exercise(t, docstore.NewMemory())
}

func TestMongo_Contract(t *testing.T) {
	db := testutil.SetupTestDB(t)
	exercise(t, docstore.NewMongo(db))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	if err := m.Create(ctx, "things", "a", doc{ID: "a", Tags: []string{"x"}}); err != nil {
		t.Fatal(err)
	}

	var first doc
	_ = m.Fetch(ctx, "things", "a", &first)
	first.Tags[0] = "mutated"

	var second doc
	_ = m.Fetch(ctx, "things", "a", &second)
	if second.Tags[0] != "x" {
		t.Errorf("stored document was mutated through a fetched copy: %v", second.Tags)
	}
}

func TestMemory_FailOn(t *testing.T) {
	m := docstore.NewMemory()
	ctx := context.Background()
	_ = m.Create(ctx, "things", "a", doc{ID: "a"})

	cause := errors.New("network down")
	m.FailOn = func(op, collection, id string) error {
		if op == docstore.OpUpdate {
			return cause
		}
		return nil
	}

	err := m.PartialUpdate(ctx, "things", "a", docstore.Fields{"name": "x"})
	if !apperr.Is(err, apperr.KindStoreWrite) {
		t.Errorf("kind = %q, want store_write", apperr.KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Error("expected injected cause in chain")
	}

	var got doc
	if err := m.Fetch(ctx, "things", "a", &got); err != nil {
		t.Errorf("Fetch should not be affected: %v", err)
	}
	if m.Len("things") != 1 {
		t.Errorf("Len = %d", m.Len("things"))
	}
}
