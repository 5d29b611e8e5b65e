package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestGetBaseDir_XDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	Init("retrohost-test")
	t.Cleanup(func() { Init("retrohost") })

	dir, err := GetBaseDir()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dir) != "retrohost-test" {
		t.Errorf("base dir %s does not end in app name", dir)
	}
}

func TestResolveDirs(t *testing.T) {
	d := ResolveDirs("/data", PathsConfig{Saves: "/elsewhere/saves"})

	if d.System != filepath.Join("/data", "system") {
		t.Errorf("System = %s", d.System)
	}
	if d.Saves != "/elsewhere/saves" {
		t.Errorf("Saves override lost: %s", d.Saves)
	}
	if d.States != filepath.Join("/data", "states") {
		t.Errorf("States = %s", d.States)
	}
}

func TestEnsureDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := ResolveDirs("/data", PathsConfig{})
	if err := EnsureDirectories(fs, d); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{d.System, d.Saves, d.States, d.Screenshots, d.CoreAssets, d.Cheats, d.Database} {
		if ok, _ := afero.DirExists(fs, dir); !ok {
			t.Errorf("%s not created", dir)
		}
	}
}

func TestAtomicWriteJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cfg/test.json"

	data := struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}{Name: "test", Value: 42}

	if err := AtomicWriteJSON(fs, path, data); err != nil {
		t.Fatalf("AtomicWriteJSON failed: %v", err)
	}
	if ok, _ := afero.Exists(fs, path+".tmp"); ok {
		t.Error("temp file left behind")
	}

	var result struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	if err := ReadJSON(fs, path, &result); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if result != data {
		t.Errorf("data mismatch: expected %+v, got %+v", data, result)
	}
}

func TestReadJSON_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	var v map[string]any
	if err := ReadJSON(fs, "/missing.json", &v); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist, got %v", err)
	}
	afero.WriteFile(fs, "/bad.json", []byte("{not json"), 0644)
	if err := ReadJSON(fs, "/bad.json", &v); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewSaveStore(fs, "/saves")

	if _, err := s.LoadSaveBlob("Game"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist before first store, got %v", err)
	}
	if s.HasSave("Game") {
		t.Fatal("HasSave before store")
	}

	want := []byte{1, 2, 3, 4}
	if err := s.StoreSaveBlob("Game", want); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadSaveBlob("Game")
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("LoadSaveBlob = %v, %v", got, err)
	}
	if ok, _ := afero.Exists(fs, "/saves/Game.srm"); !ok {
		t.Error("expected /saves/Game.srm")
	}
	if !s.HasSave("Game") {
		t.Error("HasSave after store")
	}
}

func TestSaveStore_RejectsBadNames(t *testing.T) {
	s := NewSaveStore(afero.NewMemMapFs(), "/saves")
	for _, name := range []string{"", ".", "..", "../escape", `a\b`} {
		if err := s.StoreSaveBlob(name, []byte{1}); !errors.Is(err, ErrInvalidName) {
			t.Errorf("%q: expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestStateStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStateStore(fs, "/states")

	if _, err := s.Load("Game", 3); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected empty slot error, got %v", err)
	}

	if err := s.Save("Game", 3, []byte("three")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("Game", 0, []byte("zero")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("Game", ResumeSlot, []byte("resume")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load("Game", 3)
	if err != nil || string(got) != "three" {
		t.Fatalf("Load slot 3 = %q, %v", got, err)
	}
	got, err = s.Load("Game", ResumeSlot)
	if err != nil || string(got) != "resume" {
		t.Fatalf("Load resume = %q, %v", got, err)
	}

	slots := s.Slots("Game")
	if len(slots) != 2 || slots[0].Slot != 0 || slots[1].Slot != 3 {
		t.Fatalf("Slots = %+v", slots)
	}
	if slots[1].Size != 5 {
		t.Errorf("slot 3 size = %d", slots[1].Size)
	}

	if err := s.Delete("Game", 3); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("Game", 3); err != nil {
		t.Fatalf("deleting an empty slot: %v", err)
	}
	if len(s.Slots("Game")) != 1 {
		t.Error("slot 3 should be gone")
	}
}

func TestStateStore_InvalidSlot(t *testing.T) {
	s := NewStateStore(afero.NewMemMapFs(), "/states")
	for _, slot := range []int{-2, StateSlots, 99} {
		if err := s.Save("Game", slot, nil); err == nil {
			t.Errorf("slot %d: expected error", slot)
		}
	}
}
