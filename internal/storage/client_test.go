package storage

import (
	"context"
	"errors"
	"testing"
)

func TestOutputKey(t *testing.T) {
	got := OutputKey("edit_abc", "transformed_edit_abc.png")
	if got != "outputs/edit_abc/transformed_edit_abc.png" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestNewClientRequiresBucket(t *testing.T) {
	if _, err := NewClient(Config{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}

func TestNewClientBuildsWithoutNetwork(t *testing.T) {
	c, err := NewClient(Config{
		Endpoint: "localhost:9000",
		Access:   "minioadmin",
		Secret:   "minioadmin",
		Bucket:   "imgreplace-outputs",
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.Bucket() != "imgreplace-outputs" {
		t.Fatalf("expected bucket imgreplace-outputs, got %s", c.Bucket())
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.ReadObject(ctx, "outputs/missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}

	data := []byte("jpeg")
	if err := m.WriteObject(ctx, "outputs/a/b.jpg", data, "image/jpeg"); err != nil {
		t.Fatalf("WriteObject returned error: %v", err)
	}
	data[0] = 'X'

	got, err := m.ReadObject(ctx, "outputs/a/b.jpg")
	if err != nil {
		t.Fatalf("ReadObject returned error: %v", err)
	}
	if string(got) != "jpeg" {
		t.Fatalf("expected stored copy, got %q", got)
	}

	if err := m.RemoveObject(ctx, "outputs/a/b.jpg"); err != nil {
		t.Fatalf("RemoveObject returned error: %v", err)
	}
	if _, err := m.ReadObject(ctx, "outputs/a/b.jpg"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected removed object to be missing, got %v", err)
	}
}
