package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestS3MockPutGetList(t *testing.T) {
	ctx := context.Background()
	store := NewS3MockForTests()
	if store.Driver() != DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}

	if _, err := store.Put(ctx, "exports/report.csv", strings.NewReader("type,sentence\n"), PutOptions{ContentType: "text/csv"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Put(ctx, "exports/report.csv", strings.NewReader("dup"), PutOptions{}); err == nil {
		t.Fatalf("expected create-only failure")
	}

	info, rc, err := store.Get(ctx, "exports/report.csv")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "type,sentence\n" {
		t.Fatalf("content mismatch: %q", data)
	}
	if info.ContentType != "text/csv" {
		t.Fatalf("content type lost: %+v", info)
	}

	infos, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "exports/report.csv" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestS3MockPresignAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewS3MockForTests()
	if _, err := store.Put(ctx, "exports/a.csv", strings.NewReader("x"), PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	url, err := store.PresignURL(ctx, "exports/a.csv", SignedURLOptions{})
	if err != nil {
		t.Fatalf("PresignURL: %v", err)
	}
	if !strings.Contains(url, "exports/a.csv") {
		t.Fatalf("unexpected presigned url %q", url)
	}
	if _, err := store.PresignURL(ctx, "exports/a.csv", SignedURLOptions{Method: "PUT"}); err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported for PUT presign, got %v", err)
	}
	if ok, err := store.Delete(ctx, "exports/a.csv"); err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	if _, err := store.Head(ctx, "exports/a.csv"); err == nil {
		t.Fatalf("expected head failure after delete")
	}
}

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	t.Setenv("VETCALC_BLOB_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", store.Driver())
	}

	t.Setenv("VETCALC_BLOB_DRIVER", "bogus")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected unknown driver error")
	}

	t.Setenv("VETCALC_BLOB_DRIVER", "fs")
	t.Setenv("VETCALC_BLOB_FS_ROOT", t.TempDir())
	store, err = Open(context.Background())
	if err != nil {
		t.Fatalf("Open fs: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("expected fs driver, got %s", store.Driver())
	}
}
