package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/internal/testdb"
	"github.com/Skryldev/graphql-todo/models"
	"github.com/Skryldev/graphql-todo/repo"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test fixture
// ─────────────────────────────────────────────────────────────────────────────

type todoFixture struct {
	db    *db.DB
	todos repo.TodoRepository
	ada   *models.User
}

func newTodoFixture(t *testing.T) todoFixture {
	t.Helper()
	database := testdb.Open(t)

	ada, err := repo.NewUserRepo(database).Insert(context.Background(),
		models.CreateUserParams{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return todoFixture{db: database, todos: repo.NewTodoRepo(database), ada: ada}
}

func ptr[T any](v T) *T { return &v }

func (f todoFixture) mustInsert(t *testing.T, title string) *models.TodoWithUser {
	t.Helper()
	td, err := f.todos.Insert(context.Background(), models.CreateTodoParams{Title: title, UserID: f.ada.ID})
	if err != nil {
		t.Fatalf("insert %q: %v", title, err)
	}
	return td
}

func (f todoFixture) mustList(t *testing.T) []*models.TodoWithUser {
	t.Helper()
	all, err := f.todos.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return all
}

// ─────────────────────────────────────────────────────────────────────────────
// Insert / GetByID
// ─────────────────────────────────────────────────────────────────────────────

func TestTodoRepo_Insert(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	td, err := f.todos.Insert(ctx, models.CreateTodoParams{Title: "Write report", UserID: f.ada.ID})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if td.ID == 0 || td.Title != "Write report" || td.Completed {
		t.Fatalf("unexpected todo: %+v", td)
	}
	if td.UserID != f.ada.ID {
		t.Fatalf("user_id = %d, want %d", td.UserID, f.ada.ID)
	}
	if td.User.ID != f.ada.ID || td.User.Name != "Ada" || td.User.Email != "ada@example.com" {
		t.Fatalf("owner not joined: %+v", td.User)
	}

	fetched, err := f.todos.GetByID(ctx, td.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Completed || fetched.User.Name != "Ada" {
		t.Fatalf("unexpected fetched todo: %+v", fetched)
	}
}

func TestTodoRepo_Insert_UnknownUser(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	_, err := f.todos.Insert(ctx, models.CreateTodoParams{Title: "orphan", UserID: 424242})
	if !db.IsForeignKeyViolation(err) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	all := f.mustList(t)
	if len(all) != 0 {
		t.Fatalf("rejected insert left %d rows", len(all))
	}
}

func TestTodoRepo_GetByID_NotFound(t *testing.T) {
	f := newTodoFixture(t)
	_, err := f.todos.GetByID(context.Background(), 99999)
	if !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

func TestTodoRepo_Update_TitleOnly(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := created
	todos := repo.NewTodoRepo(f.db, repo.WithClock(func() time.Time { return now }))

	orig, err := todos.Insert(ctx, models.CreateTodoParams{Title: "before", UserID: f.ada.ID})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !orig.CreatedAt.Equal(created) || !orig.UpdatedAt.Equal(created) {
		t.Fatalf("insert timestamps: created=%v updated=%v", orig.CreatedAt, orig.UpdatedAt)
	}

	now = created.Add(time.Hour)
	updated, err := todos.Update(ctx, models.UpdateTodoParams{ID: orig.ID, Title: ptr("X")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "X" {
		t.Fatalf("title = %q", updated.Title)
	}
	if updated.Completed != orig.Completed || updated.UserID != orig.UserID {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Fatalf("created_at changed to %v", updated.CreatedAt)
	}
	if !updated.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", updated.UpdatedAt, now)
	}
}

func TestTodoRepo_Update_Completed(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	orig := f.mustInsert(t, "same")

	updated, err := f.todos.Update(ctx, models.UpdateTodoParams{ID: orig.ID, Completed: ptr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Completed || updated.Title != "same" {
		t.Fatalf("unexpected todo: %+v", updated)
	}
	if updated.User.Name != "Ada" {
		t.Fatalf("owner not joined: %+v", updated.User)
	}
}

func TestTodoRepo_Update_NoFields(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	orig := f.mustInsert(t, "still")

	_, err := f.todos.Update(ctx, models.UpdateTodoParams{ID: orig.ID})
	if !errors.Is(err, repo.ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}

	after, err := f.todos.GetByID(ctx, orig.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !after.UpdatedAt.Equal(orig.UpdatedAt) {
		t.Fatal("updated_at changed without an update")
	}
}

func TestTodoRepo_Update_NotFound(t *testing.T) {
	f := newTodoFixture(t)
	_, err := f.todos.Update(context.Background(), models.UpdateTodoParams{ID: 99999, Title: ptr("x")})
	if !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTodoRepo_Update_OwnerMissing(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	td := f.mustInsert(t, "dangling")

	// Break the join behind the foreign key's back.
	if _, err := f.db.Exec(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if _, err := f.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, f.ada.ID); err != nil {
		t.Fatalf("delete owner: %v", err)
	}

	_, err := f.todos.Update(ctx, models.UpdateTodoParams{ID: td.ID, Title: ptr("changed")})
	if !errors.Is(err, repo.ErrOwnerMissing) {
		t.Fatalf("expected ErrOwnerMissing, got %v", err)
	}

	var title string
	if err := f.db.QueryRow(ctx, `SELECT title FROM todos WHERE id = $1`, td.ID).Scan(&title); err != nil {
		t.Fatalf("select: %v", err)
	}
	if title != "dangling" {
		t.Fatalf("update must be rolled back, title = %q", title)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────────────────────

func TestTodoRepo_Delete(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	td := f.mustInsert(t, "bye")

	removed, err := f.todos.Delete(ctx, td.ID)
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	if _, err := f.todos.GetByID(ctx, td.ID); !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	removed, err = f.todos.Delete(ctx, td.ID)
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// List
// ─────────────────────────────────────────────────────────────────────────────

func TestTodoRepo_List_NewestFirst(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		if _, err := f.todos.Insert(ctx, models.CreateTodoParams{Title: title, UserID: f.ada.ID}); err != nil {
			t.Fatalf("insert %s: %v", title, err)
		}
	}

	all, err := f.todos.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, len(all))
	for i, td := range all {
		got[i] = td.Title
		if td.User.Name != "Ada" {
			t.Fatalf("owner not joined on %q", td.Title)
		}
	}
	want := []string{"three", "two", "one"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	fresh := f.mustInsert(t, "four")
	all = f.mustList(t)
	if all[0].ID != fresh.ID {
		t.Fatalf("new todo should lead the list, got %q", all[0].Title)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Transaction: repo inside tx
// ─────────────────────────────────────────────────────────────────────────────

func TestTodoRepo_InsideTransaction(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := f.db.ExecTx(ctx, func(tx *db.Tx) error {
		if _, err := repo.NewTodoRepo(tx).Insert(ctx, models.CreateTodoParams{Title: "tx", UserID: f.ada.ID}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	all := f.mustList(t)
	if len(all) != 0 {
		t.Fatalf("insert inside rolled back tx is visible: %d rows", len(all))
	}
}
