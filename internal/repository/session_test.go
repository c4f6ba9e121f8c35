package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/JobBoard/internal/client/storage"
	"github.com/lib/pq"
)

const upsertQuery = `INSERT INTO visitor_sessions (visitor_id, key, value, updated_at)`

func setupMock(t *testing.T) (*PostgresSessionRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresSessionRepository(db)
	cleanup := func() {
		db.Close()
	}
	return repo, mock, cleanup
}

func TestGet_Found(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM visitor_sessions WHERE visitor_id = $1 AND key = $2`)).
		WithArgs("v1", storage.KeyToken).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("T1"))

	v, ok, err := repo.Get(context.Background(), "v1", storage.KeyToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || v != "T1" {
		t.Errorf("Get = %q, %v; want T1, true", v, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGet_Missing(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM visitor_sessions`)).
		WithArgs("v1", storage.KeyUser).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	v, ok, err := repo.Get(context.Background(), "v1", storage.KeyUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || v != "" {
		t.Errorf("Get = %q, %v; want empty, false", v, ok)
	}
}

func TestGet_Error(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM visitor_sessions`)).
		WillReturnError(errors.New("query fail"))

	if _, _, err := repo.Get(context.Background(), "v1", "k"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPut_Success(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(upsertQuery)).
		WithArgs("v1", storage.KeyToken, "T1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(upsertQuery)).
		WithArgs("v1", storage.KeyUser, `{"id":1}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Put(context.Background(), "v1", map[string]string{
		storage.KeyUser:  `{"id":1}`,
		storage.KeyToken: "T1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPut_RollbackOnError(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(upsertQuery)).
		WithArgs("v1", storage.KeyToken, "T1").
		WillReturnError(errors.New("exec fail"))
	mock.ExpectRollback()

	err := repo.Put(context.Background(), "v1", map[string]string{storage.KeyToken: "T1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPut_BeginError(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectBegin().WillReturnError(errors.New("begin fail"))

	if err := repo.Put(context.Background(), "v1", map[string]string{"k": "v"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDelete(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	keys := []string{storage.KeyToken, storage.KeyUser}
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM visitor_sessions WHERE visitor_id = $1 AND key = ANY($2)`)).
		WithArgs("v1", pq.Array(keys)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.Delete(context.Background(), "v1", keys); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVisitorStore(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	store := repo.ForVisitor("v9", time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(upsertQuery)).
		WithArgs("v9", storage.KeyToken, "T").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM visitor_sessions`)).
		WithArgs("v9", storage.KeyToken).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("T"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM visitor_sessions`)).
		WithArgs("v9", pq.Array([]string{storage.KeyToken})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Put(map[string]string{storage.KeyToken: "T"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if v, ok, err := store.Get(storage.KeyToken); err != nil || !ok || v != "T" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if err := store.Delete(storage.KeyToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTouch(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE visitor_sessions SET updated_at = now() WHERE visitor_id = $1`)).
		WithArgs("v1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE visitor_sessions SET updated_at = now()`)).
		WithArgs("v2").
		WillReturnError(errors.New("db down"))

	if err := repo.ForVisitor("v1", time.Second).Touch(); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := repo.Touch(context.Background(), "v2"); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
