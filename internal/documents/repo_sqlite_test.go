package documents

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"jobassist/internal/shared/storage/db"
	"jobassist/resume/model"
	"jobassist/resume/render"
)

func TestSQLiteRepoCreate(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	exp := Export{
		ID:             "exp-1",
		ConversationID: "conv-1",
		DocumentType:   model.DocumentResume,
		Format:         render.FormatPDF,
		FileName:       "optimized_resume.pdf",
		ContentType:    "application/pdf",
		SizeBytes:      1024,
		StorageKey:     "abc/optimized_resume.pdf",
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO exports").
		WithArgs(
			exp.ID,
			exp.ConversationID,
			"resume",
			"pdf",
			exp.FileName,
			exp.ContentType,
			exp.SizeBytes,
			exp.StorageKey,
			nil, // revision_id
			exp.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := (&SQLiteRepo{DB: conn}).Create(context.Background(), exp); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSQLiteRepoGetByIDNotFound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	mock.ExpectQuery("SELECT (.+) FROM exports").
		WithArgs("missing", "conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = (&SQLiteRepo{DB: conn}).GetByID(context.Background(), "conv-1", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Connect(ctx, filepath.Join(t.TempDir(), "exports.db"), db.DefaultOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.RunMigrations(ctx, conn); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	repo := &SQLiteRepo{DB: conn}
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"exp-1", "exp-2"} {
		exp := Export{
			ID:             id,
			ConversationID: "conv-1",
			DocumentType:   model.DocumentResume,
			Format:         render.FormatDOCX,
			FileName:       "optimized_resume.docx",
			ContentType:    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			SizeBytes:      int64(100 + i),
			StorageKey:     "k/" + id,
			RevisionID:     "rev-" + id,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, exp); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	other := Export{ID: "exp-3", ConversationID: "conv-2", DocumentType: model.DocumentResume, Format: render.FormatText, FileName: "x.txt", ContentType: "text/plain", StorageKey: "k/3", CreatedAt: base}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	list, err := repo.ListByConversation(ctx, "conv-1", model.DocumentResume)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(list) != 2 || list[0].ID != "exp-2" || list[1].ID != "exp-1" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[0].Format != render.FormatDOCX || list[0].RevisionID != "rev-exp-2" || !list[0].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected export: %+v", list[0])
	}

	empty, err := repo.ListByConversation(ctx, "conv-1", model.DocumentCoverLetter)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no cover letter exports, got %v %v", empty, err)
	}

	got, err := repo.GetByID(ctx, "conv-2", "exp-3")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.RevisionID != "" || got.Format != render.FormatText {
		t.Fatalf("unexpected export: %+v", got)
	}
	if _, err := repo.GetByID(ctx, "conv-1", "exp-3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across conversations, got %v", err)
	}
}
