package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if store.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}

	if _, err := store.Put(ctx, "k1", strings.NewReader("hello"), PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Put(ctx, "k1", strings.NewReader("again"), PutOptions{}); err == nil {
		t.Fatalf("expected duplicate key error")
	}

	info, rc, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "hello" || info.Size != 5 {
		t.Fatalf("unexpected blob: %q %+v", data, info)
	}

	if _, err := store.Head(ctx, "missing"); err == nil {
		t.Fatalf("expected head failure for missing key")
	}
	if _, err := store.PresignURL(ctx, "k1", SignedURLOptions{}); err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}

	ok, err := store.Delete(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreListSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	for _, key := range []string{"b", "a", "prefix/z", "prefix/a"} {
		if _, err := store.Put(ctx, key, strings.NewReader(key), PutOptions{}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "prefix/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "prefix/a" || infos[1].Key != "prefix/z" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}
