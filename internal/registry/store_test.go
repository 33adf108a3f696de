package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDirStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	s, err := NewDirStore(dir)
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Get(ctx, "A_PAR_SM"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
	if err := s.Put(ctx, "A_PAR_SM", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "A_PAR_SM", []byte("two")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err := s.Get(ctx, "A_PAR_SM")
	if err != nil || string(got) != "two" {
		t.Errorf("Get = %q, %v; want two", got, err)
	}
	if err := s.Put(ctx, "../evil", []byte("x")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Put(../evil) err = %v, want ErrInvalidKey", err)
	}
}

func TestDirStoreKeysAndClear(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, k := range []string{"F_BRE_SM", "A_PAR_SM"} {
		if err := s.Put(ctx, k, []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(s.Dir(), "archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"A_PAR_SM", "F_BRE_SM"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if keys, _ := s.Keys(ctx); len(keys) != 0 {
		t.Errorf("keys after Clear = %v", keys)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "archive")); err != nil {
		t.Errorf("Clear removed a subdirectory: %v", err)
	}
}
