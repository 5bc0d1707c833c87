package ingest

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"notifyd/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testIngestor(t *testing.T) *Ingestor {
	t.Helper()
	scratch := NewScratchDirs(t.TempDir(), 0, testLogger())
	return New(scratch, testLogger())
}

func multipartBody(t *testing.T, build func(w *multipart.Writer)) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	build(w)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestParse_JSON(t *testing.T) {
	in := testIngestor(t)
	body := `{"title":"hi","message":"there","callback_command":"notepad"}`
	r := httptest.NewRequest("POST", "/notify", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	req, dir, err := in.Parse(r)
	if err != nil {
		t.Fatal(err)
	}
	if dir != "" {
		t.Errorf("JSON request should not create a scratch dir, got %s", dir)
	}
	if req.Title != "hi" || req.Message != "there" || req.CallbackCommand != "notepad" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestParse_JSONInvalid(t *testing.T) {
	in := testIngestor(t)
	r := httptest.NewRequest("POST", "/notify", strings.NewReader("not json"))
	r.Header.Set("Content-Type", "application/json")

	_, _, err := in.Parse(r)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !domain.IsClientError(err) {
		t.Errorf("expected client error, got %T", err)
	}
}

func TestParse_MissingContentTypeFallsBackToJSON(t *testing.T) {
	in := testIngestor(t)
	r := httptest.NewRequest("POST", "/notify", strings.NewReader(`{"title":"t","message":"m"}`))

	req, _, err := in.Parse(r)
	if err != nil {
		t.Fatal(err)
	}
	if req.Title != "t" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestParse_MultipartTextFields(t *testing.T) {
	in := testIngestor(t)
	buf, ct := multipartBody(t, func(w *multipart.Writer) {
		w.WriteField("title", "hello")
		w.WriteField("message", "world")
		w.WriteField("callback_command", "code .")
	})
	r := httptest.NewRequest("POST", "/notify", buf)
	r.Header.Set("Content-Type", ct)

	req, dir, err := in.Parse(r)
	if err != nil {
		t.Fatal(err)
	}
	if dir == "" {
		t.Error("multipart request should allocate a scratch dir")
	}
	if req.Title != "hello" || req.Message != "world" || req.CallbackCommand != "code ." {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestParse_MultipartImageKeepsExtension(t *testing.T) {
	in := testIngestor(t)
	buf, ct := multipartBody(t, func(w *multipart.Writer) {
		fw, _ := w.CreateFormFile("image", "avatar.png")
		fw.Write([]byte("png-bytes"))
	})
	r := httptest.NewRequest("POST", "/notify", buf)
	r.Header.Set("Content-Type", ct)

	req, _, err := in.Parse(r)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(req.ImagePath) != "image.png" {
		t.Errorf("expected canonical image.png, got %s", req.ImagePath)
	}
	data, err := os.ReadFile(req.ImagePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("image content mismatch: %q", data)
	}
}

func TestParse_MultipartImageDefaultExtension(t *testing.T) {
	in := testIngestor(t)
	buf, ct := multipartBody(t, func(w *multipart.Writer) {
		fw, _ := w.CreateFormFile("image", "noext")
		fw.Write([]byte("x"))
	})
	r := httptest.NewRequest("POST", "/notify", buf)
	r.Header.Set("Content-Type", ct)

	req, _, err := in.Parse(r)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(req.ImagePath) != "image.jpg" {
		t.Errorf("expected default jpg extension, got %s", req.ImagePath)
	}
}

func TestParse_MultipartFilesKeepNames(t *testing.T) {
	in := testIngestor(t)
	buf, ct := multipartBody(t, func(w *multipart.Writer) {
		f1, _ := w.CreateFormFile("files", "report.pdf")
		f1.Write([]byte("pdf"))
		f2, _ := w.CreateFormFile("files", "notes.txt")
		f2.Write([]byte("txt"))
	})
	r := httptest.NewRequest("POST", "/notify", buf)
	r.Header.Set("Content-Type", ct)

	req, dir, err := in.Parse(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(req.FilePaths) != 2 {
		t.Fatalf("expected 2 staged files, got %v", req.FilePaths)
	}
	if filepath.Base(req.FilePaths[0]) != "report.pdf" || filepath.Base(req.FilePaths[1]) != "notes.txt" {
		t.Errorf("filenames not preserved: %v", req.FilePaths)
	}
	for _, p := range req.FilePaths {
		if filepath.Dir(p) != dir {
			t.Errorf("file %s staged outside scratch dir %s", p, dir)
		}
	}
}

func TestParse_MultipartFilenameTraversalStripped(t *testing.T) {
	in := testIngestor(t)
	buf, ct := multipartBody(t, func(w *multipart.Writer) {
		fw, _ := w.CreateFormFile("files", "../../evil.txt")
		fw.Write([]byte("x"))
	})
	r := httptest.NewRequest("POST", "/notify", buf)
	r.Header.Set("Content-Type", ct)

	req, dir, err := in.Parse(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(req.FilePaths) != 1 {
		t.Fatalf("expected 1 staged file, got %v", req.FilePaths)
	}
	if filepath.Dir(req.FilePaths[0]) != dir {
		t.Errorf("traversal escaped scratch dir: %s", req.FilePaths[0])
	}
	if filepath.Base(req.FilePaths[0]) != "evil.txt" {
		t.Errorf("expected base name only, got %s", req.FilePaths[0])
	}
}

func TestParse_MultipartUnknownFieldIgnored(t *testing.T) {
	in := testIngestor(t)
	buf, ct := multipartBody(t, func(w *multipart.Writer) {
		w.WriteField("title", "t")
		w.WriteField("message", "m")
		w.WriteField("surprise", "whatever")
	})
	r := httptest.NewRequest("POST", "/notify", buf)
	r.Header.Set("Content-Type", ct)

	req, _, err := in.Parse(r)
	if err != nil {
		t.Fatalf("unknown field must never fail the request: %v", err)
	}
	if req.Title != "t" || req.Message != "m" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestParse_MultipartInvalidUTF8(t *testing.T) {
	in := testIngestor(t)
	buf, ct := multipartBody(t, func(w *multipart.Writer) {
		fw, _ := w.CreateFormField("title")
		fw.Write([]byte{0xff, 0xfe, 0xfd})
	})
	r := httptest.NewRequest("POST", "/notify", buf)
	r.Header.Set("Content-Type", ct)

	_, _, err := in.Parse(r)
	if err == nil {
		t.Fatal("expected error for invalid UTF-8 in title")
	}
	if !domain.IsClientError(err) {
		t.Errorf("expected client error, got %T", err)
	}
}

func TestParse_ConcurrentRequestsGetDistinctDirs(t *testing.T) {
	scratch := NewScratchDirs(t.TempDir(), 0, testLogger())
	in := New(scratch, testLogger())

	const n = 10
	dirs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buf, ct := multipartBody(t, func(w *multipart.Writer) {
				w.WriteField("title", "t")
				fw, _ := w.CreateFormFile("files", "f.txt")
				io.WriteString(fw, "data")
			})
			r := httptest.NewRequest("POST", "/notify", buf)
			r.Header.Set("Content-Type", ct)
			_, dir, err := in.Parse(r)
			if err != nil {
				t.Error(err)
				return
			}
			dirs[i] = dir
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, d := range dirs {
		if d == "" {
			t.Fatal("missing scratch dir")
		}
		if seen[d] {
			t.Fatalf("scratch dir reused: %s", d)
		}
		seen[d] = true
	}
}

// --- Sweeper ---

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	root := t.TempDir()
	scratch := NewScratchDirs(root, time.Hour, testLogger())

	oldDir, err := scratch.NewDir()
	if err != nil {
		t.Fatal(err)
	}
	newDir, err := scratch.NewDir()
	if err != nil {
		t.Fatal(err)
	}

	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, stale, stale); err != nil {
		t.Fatal(err)
	}

	scratch.Sweep()

	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("expired scratch dir should be removed")
	}
	if _, err := os.Stat(newDir); err != nil {
		t.Error("fresh scratch dir should survive the sweep")
	}
}

func TestSweep_DisabledWithoutTTL(t *testing.T) {
	root := t.TempDir()
	scratch := NewScratchDirs(root, 0, testLogger())

	dir, err := scratch.NewDir()
	if err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-48 * time.Hour)
	os.Chtimes(dir, stale, stale)

	scratch.Sweep()

	if _, err := os.Stat(dir); err != nil {
		t.Error("sweep must be a no-op when the TTL is 0")
	}
}
