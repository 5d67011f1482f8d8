package database

import (
	"errors"
	"testing"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
)

// TestBadgerMirror_SaveLoad は保存したビューがそのまま読み出せることをテストします。
func TestBadgerMirror_SaveLoad(t *testing.T) {
	mirror, err := NewInMemoryMirror()
	if err != nil {
		t.Fatalf("NewInMemoryMirror failed: %v", err)
	}
	defer mirror.Close()

	usedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	collections := []models.Collection{
		{
			ID:          "col-1",
			Name:        "GitHub",
			Description: "個人用",
			Codes: []models.LocalCode{
				{ID: "code-1", Code: "111111", Label: "Backup", Used: true, UsedAt: &usedAt},
				{ID: "code-2", Code: "222222", Label: "2FA Code"},
			},
			CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	if err := mirror.Save("user-1", collections); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := mirror.Load("user-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "GitHub" {
		t.Fatalf("Expected GitHub collection, but got %+v", loaded)
	}
	if len(loaded[0].Codes) != 2 {
		t.Fatalf("Expected 2 codes, but got %d", len(loaded[0].Codes))
	}
	if !loaded[0].Codes[0].Used || loaded[0].Codes[0].UsedAt == nil {
		t.Error("Expected used flag and timestamp to survive the round trip")
	}
	if loaded[0].Codes[1].Label != "2FA Code" {
		t.Errorf("Expected label to survive, but got %q", loaded[0].Codes[1].Label)
	}
}

// TestBadgerMirror_LoadMissing は存在しないエントリの読み込みをテストします。
func TestBadgerMirror_LoadMissing(t *testing.T) {
	mirror, err := NewInMemoryMirror()
	if err != nil {
		t.Fatalf("NewInMemoryMirror failed: %v", err)
	}
	defer mirror.Close()

	if _, err := mirror.Load("missing-user"); !errors.Is(err, ErrMirrorNotFound) {
		t.Errorf("Expected ErrMirrorNotFound, but got %v", err)
	}
}

// TestBadgerMirror_Delete はエントリの削除をテストします。
func TestBadgerMirror_Delete(t *testing.T) {
	mirror, err := NewInMemoryMirror()
	if err != nil {
		t.Fatalf("NewInMemoryMirror failed: %v", err)
	}
	defer mirror.Close()

	if err := mirror.Save("user-1", []models.Collection{{ID: "col-1", Name: "GitHub"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := mirror.Delete("user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := mirror.Load("user-1"); !errors.Is(err, ErrMirrorNotFound) {
		t.Errorf("Expected ErrMirrorNotFound after delete, but got %v", err)
	}

	// 存在しないエントリの削除はエラーにならない
	if err := mirror.Delete("user-1"); err != nil {
		t.Errorf("Expected idempotent delete, but got %v", err)
	}
}

// TestBadgerMirror_PerUserIsolation はユーザーごとのスロット分離をテストします。
func TestBadgerMirror_PerUserIsolation(t *testing.T) {
	mirror, err := NewInMemoryMirror()
	if err != nil {
		t.Fatalf("NewInMemoryMirror failed: %v", err)
	}
	defer mirror.Close()

	if err := mirror.Save("user-1", []models.Collection{{ID: "a", Name: "A"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := mirror.Save("user-2", []models.Collection{{ID: "b", Name: "B"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := mirror.Load("user-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "A" {
		t.Errorf("Expected user-1 to see only collection A, but got %+v", loaded)
	}
}
