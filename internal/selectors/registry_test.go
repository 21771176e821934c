package selectors

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestDefaults_AllTargetsNonEmpty(t *testing.T) {
	// WHAT: Every known logical target has at least one fallback query.
	// WHY: An empty list would make a whole extraction field silently vanish.
	r := Defaults()
	targets := []string{
		TargetCard, TargetLibraryID, TargetHeadline, TargetCaption, TargetAdvertiser,
		TargetCTA, TargetDate, TargetDestination, TargetMediaImage, TargetMediaVideo,
	}
	for _, target := range targets {
		if len(r.Queries(target)) == 0 {
			t.Errorf("target %q has no default queries", target)
		}
	}
}

func TestQueries_UnknownTarget(t *testing.T) {
	// WHAT: An unknown target yields nil, not a panic.
	if qs := Defaults().Queries("nope"); qs != nil {
		t.Errorf("expected nil, got %v", qs)
	}
}

func TestQueries_ReturnsCopy(t *testing.T) {
	// WHAT: Mutating a returned slice does not corrupt the registry.
	r := Defaults()
	qs := r.Queries(TargetCard)
	qs[0] = "mutated"
	if r.Queries(TargetCard)[0] == "mutated" {
		t.Error("Queries returned the internal slice")
	}
}

func TestLoadFile_MissingIsDefaults(t *testing.T) {
	// WHAT: A missing cache file falls back to the compiled-in defaults.
	// WHY: First runs must work with zero configuration.
	r, err := LoadFile(filepath.Join(t.TempDir(), "selectors.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(r.Queries(TargetCard)) == 0 {
		t.Error("defaults not applied")
	}
}

func TestLoadFile_OverlayReplacesTarget(t *testing.T) {
	// WHAT: A cached target fully replaces its default list; untouched
	// targets keep their defaults.
	path := filepath.Join(t.TempDir(), "selectors.json")
	content := `{"ad_card": ["div.custom-card"], "extra": ["span.x"]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := r.Queries(TargetCard); len(got) != 1 || got[0] != "div.custom-card" {
		t.Errorf("overlay not applied: %v", got)
	}
	if got := r.Queries("extra"); len(got) != 1 || got[0] != "span.x" {
		t.Errorf("new target not added: %v", got)
	}
	if len(r.Queries(TargetHeadline)) == 0 {
		t.Error("untouched target lost its defaults")
	}
}

func TestLoadFile_MalformedIsError(t *testing.T) {
	// WHAT: A present but unparsable cache file errors out.
	// WHY: Ignoring operator edits silently is worse than failing the run.
	path := filepath.Join(t.TempDir(), "selectors.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestSaveFile_RoundTripAndAtomic(t *testing.T) {
	// WHAT: SaveFile round-trips through LoadFile and leaves no .tmp file.
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.json")

	r := Defaults()
	r.Merge(map[string][]string{TargetCard: {"div.saved"}})
	if err := r.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover tmp file: %s", e.Name())
		}
	}

	r2, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := r2.Queries(TargetCard); len(got) != 1 || got[0] != "div.saved" {
		t.Errorf("round trip lost data: %v", got)
	}
}

func TestLoadDB_OverlayFromSQLite(t *testing.T) {
	// WHAT: selector_sets rows overlay the defaults; SaveDB upserts.
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "sel.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	if err := SaveDB(ctx, db, TargetCTA, []string{"a.cta-db"}); err != nil {
		t.Fatalf("SaveDB: %v", err)
	}
	// Upsert over the same target must replace, not duplicate.
	if err := SaveDB(ctx, db, TargetCTA, []string{"a.cta-db2"}); err != nil {
		t.Fatalf("SaveDB upsert: %v", err)
	}

	r, err := LoadDB(ctx, db)
	if err != nil {
		t.Fatalf("LoadDB: %v", err)
	}
	if got := r.Queries(TargetCTA); len(got) != 1 || got[0] != "a.cta-db2" {
		t.Errorf("db overlay not applied: %v", got)
	}
	if len(r.Queries(TargetCard)) == 0 {
		t.Error("defaults lost after db load")
	}
}
