package board

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sirwalterjones/threads-backend/internal/data/repos/testutil"
	types "github.com/sirwalterjones/threads-backend/internal/domain"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
)

func TestPostRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPostRepo(db, testutil.Logger(t))

	p1 := &types.Post{ID: uuid.New(), AuthorName: "a", Title: "first", Body: "b"}
	p2 := &types.Post{ID: uuid.New(), AuthorName: "a", Title: "second", Body: "b"}
	if _, err := repo.Create(dbc, []*types.Post{p1, p2}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{p1.ID, p2.ID}); err != nil || len(rows) != 2 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	got, err := repo.GetByID(dbc, p1.ID)
	if err != nil || got == nil || got.ID != p1.ID {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.Tags != nil {
		t.Fatalf("fresh post tags column: want=NULL got=%s", string(got.Tags))
	}
	if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByID missing: got=%v err=%v", missing, err)
	}

	if rows, err := repo.List(dbc, 10, 0); err != nil || len(rows) < 2 {
		t.Fatalf("List: err=%v len=%d", err, len(rows))
	}

	// The tags column round-trips through UpdateFields and clears back to NULL.
	raw, _ := json.Marshal([]string{"#alpha"})
	if err := repo.UpdateFields(dbc, p1.ID, map[string]interface{}{"tags": datatypes.JSON(raw)}); err != nil {
		t.Fatalf("UpdateFields set tags: %v", err)
	}
	if got, err := repo.GetByID(dbc, p1.ID); err != nil || string(got.Tags) != string(raw) {
		t.Fatalf("tags after set: got=%s err=%v", string(got.Tags), err)
	}
	if err := repo.UpdateFields(dbc, p1.ID, map[string]interface{}{"tags": nil}); err != nil {
		t.Fatalf("UpdateFields clear tags: %v", err)
	}
	if got, err := repo.GetByID(dbc, p1.ID); err != nil || got.Tags != nil {
		t.Fatalf("tags after clear: got=%s err=%v", string(got.Tags), err)
	}

	if _, err := repo.LockByID(dbc, p1.ID); err != nil {
		t.Fatalf("LockByID: %v", err)
	}
	if _, err := repo.LockByID(dbctx.Context{Ctx: ctx}, p1.ID); err == nil {
		t.Fatalf("LockByID without tx should fail")
	}

	if n, err := repo.CountAll(dbc); err != nil || n < 2 {
		t.Fatalf("CountAll: n=%d err=%v", n, err)
	}

	if err := repo.SoftDeleteByID(dbc, p2.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	if got, err := repo.GetByID(dbc, p2.ID); err != nil || got != nil {
		t.Fatalf("GetByID after soft delete: got=%v err=%v", got, err)
	}

	if err := repo.FullDeleteByID(dbc, p2.ID); err != nil {
		t.Fatalf("FullDeleteByID: %v", err)
	}
}

func TestPostGetByIDMissing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewPostRepo(db, testutil.Logger(t))

	got, err := repo.GetByID(dbctx.Context{Ctx: context.Background(), Tx: tx}, uuid.Nil)
	if err != nil || got != nil {
		t.Fatalf("GetByID nil id: got=%v err=%v", got, err)
	}
}
