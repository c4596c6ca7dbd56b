package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/docpane/layoutstudio/annot"
)

func testItem(id string) annot.Annotation {
	return annot.Annotation{
		ID:         id,
		Left:       10,
		Top:        20,
		Width:      100,
		Height:     50,
		PageNumber: 1,
		PageWidth:  800,
		PageHeight: 1000,
		Type:       annot.Title,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := NewLocal(t.TempDir(), t.TempDir())
	ctx := context.Background()
	want := []annot.Annotation{testItem("a"), testItem("b")}

	if err := g.SaveAnnotations(ctx, "doc.json", want); err != nil {
		t.Fatalf("SaveAnnotations() error = %v", err)
	}
	raw, err := g.LoadAnnotations(ctx, "doc.json")
	if err != nil {
		t.Fatalf("LoadAnnotations() error = %v", err)
	}
	got, report, err := annot.DecodeList(raw)
	if err != nil {
		t.Fatalf("DecodeList() error = %v", err)
	}
	if report.Rejected != 0 {
		t.Fatalf("report = %+v, want no rejects", report)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	g := NewLocal(dir, t.TempDir())

	if err := g.SaveAnnotations(context.Background(), "doc.json", []annot.Annotation{testItem("a")}); err != nil {
		t.Fatalf("SaveAnnotations() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "doc.json" {
		t.Errorf("dataDir entries = %v, want only doc.json", entries)
	}
}

func TestSaveCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	g := NewLocal(dir, t.TempDir())

	if err := g.SaveAnnotations(context.Background(), "doc.json", nil); err != nil {
		t.Fatalf("SaveAnnotations() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "doc.json")); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestBadFilenames(t *testing.T) {
	g := NewLocal(t.TempDir(), t.TempDir())
	ctx := context.Background()
	for _, name := range []string{
		"",
		"doc.txt",
		"doc",
		"../escape.json",
		"sub/dir.json",
		"/etc/passwd.json",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := g.LoadAnnotations(ctx, name); !errors.Is(err, ErrBadFilename) {
				t.Errorf("LoadAnnotations(%q) error = %v, want ErrBadFilename", name, err)
			}
			if err := g.SaveAnnotations(ctx, name, nil); !errors.Is(err, ErrBadFilename) {
				t.Errorf("SaveAnnotations(%q) error = %v, want ErrBadFilename", name, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	g := NewLocal(t.TempDir(), t.TempDir())
	if _, err := g.LoadAnnotations(context.Background(), "missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadAnnotations error = %v, want ErrNotFound", err)
	}
}

func TestListFiles(t *testing.T) {
	dataDir, pdfDir := t.TempDir(), t.TempDir()
	for _, name := range []string{"b.json", "a.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"z.pdf", "a.PDF", "readme.md"} {
		if err := os.WriteFile(filepath.Join(pdfDir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dataDir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	g := NewLocal(dataDir, pdfDir)
	pdfs, jsons, err := g.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a.PDF", "z.pdf"}, pdfs); diff != "" {
		t.Errorf("pdfs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.json", "b.json"}, jsons); diff != "" {
		t.Errorf("jsons (-want +got):\n%s", diff)
	}
}

func TestListFilesMissingDirs(t *testing.T) {
	g := NewLocal(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "nada"))
	pdfs, jsons, err := g.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(pdfs) != 0 || len(jsons) != 0 {
		t.Errorf("got %v / %v, want empty lists", pdfs, jsons)
	}
}

func TestSyncFile(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	g := NewLocal(dataDir, t.TempDir(), WithRemote(srv.URL+"/upload/"))
	ctx := context.Background()
	if err := g.SaveAnnotations(ctx, "doc.json", []annot.Annotation{testItem("a")}); err != nil {
		t.Fatal(err)
	}

	if err := g.SyncFile(ctx, "doc.json"); err != nil {
		t.Fatalf("SyncFile() error = %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/upload/doc.json" {
		t.Errorf("request = %s %s, want PUT /upload/doc.json", gotMethod, gotPath)
	}
	if !strings.Contains(gotBody, `"id": "a"`) {
		t.Errorf("uploaded body missing the annotation: %s", gotBody)
	}
}

func TestSyncFileRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewLocal(t.TempDir(), t.TempDir(), WithRemote(srv.URL))
	ctx := context.Background()
	if err := g.SaveAnnotations(ctx, "doc.json", nil); err != nil {
		t.Fatal(err)
	}
	if err := g.SyncFile(ctx, "doc.json"); err == nil {
		t.Error("SyncFile() returned nil on a 500 response")
	}
}

func TestSyncFileNoRemote(t *testing.T) {
	g := NewLocal(t.TempDir(), t.TempDir())
	if err := g.SyncFile(context.Background(), "doc.json"); !errors.Is(err, ErrNoRemote) {
		t.Errorf("SyncFile() error = %v, want ErrNoRemote", err)
	}
}

func TestSyncFileUnsavedFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	g := NewLocal(t.TempDir(), t.TempDir(), WithRemote(srv.URL))
	if err := g.SyncFile(context.Background(), "never-saved.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SyncFile() error = %v, want ErrNotFound", err)
	}
}
