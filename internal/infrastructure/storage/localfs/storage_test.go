package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

func TestSaveOpenDelete(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "batch-1/cv.txt", strings.NewReader("Jane Doe CV")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := store.Open(ctx, "batch-1/cv.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(raw) != "Jane Doe CV" {
		t.Fatalf("unexpected body %q", raw)
	}

	if err := store.Delete(ctx, "batch-1/cv.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Open(ctx, "batch-1/cv.txt"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := store.Delete(ctx, "batch-1/cv.txt"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"../outside.txt", "", "/etc/passwd"} {
		if err := store.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected invalid input, got %v", key, err)
		}
	}
}
