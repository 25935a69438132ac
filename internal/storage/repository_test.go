package storage

import (
	"context"
	"testing"
)

type fakeRepo struct{ closed bool }

func (f *fakeRepo) Close()                                 { f.closed = true }
func (f *fakeRepo) EnsureSchema(ctx context.Context) error { return nil }
func (f *fakeRepo) UpsertRecords(ctx context.Context, recordType string, year int, ids []string, payloads [][]byte) (int64, error) {
	return int64(len(ids)), nil
}

func TestRegisterAndNew(t *testing.T) {
	var gotDSN string
	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		gotDSN = cfg.DSN
		return &fakeRepo{}, nil
	})

	r, err := New(context.Background(), Config{Kind: "fake", DSN: "dsn://x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if gotDSN != "dsn://x" {
		t.Fatalf("factory did not receive DSN: %q", gotDSN)
	}
	r.Close()
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	f := func(ctx context.Context, cfg Config) (Repository, error) { return &fakeRepo{}, nil }
	Register("dup", f)
	Register("dup", f)
}
