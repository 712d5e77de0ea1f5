package filestorage

import (
	"bytes"
	"errors"
	"mime/multipart"
	"os"
	"strings"
	"testing"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("photo", name)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	w.Close()

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["photo"][0]
}

func TestSaveAndDelete(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads/")
	if err != nil {
		t.Fatal(err)
	}

	url, err := ls.SaveFileWithPath(fileHeader(t, "Me.PNG", pngHeader), "candidates")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/candidates/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q", url)
	}

	full := ls.GetFullPath(url)
	if data, err := os.ReadFile(full); err != nil || !bytes.Equal(data, pngHeader) {
		t.Fatalf("stored file = %q, %v", data, err)
	}

	if err := ls.DeleteFile(url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := ls.DeleteFile(url); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestGetFullPathStaysInsideBase(t *testing.T) {
	ls, _ := NewLocalStorage(t.TempDir(), "/uploads")
	for _, u := range []string{"/elsewhere/x.png", "/uploads/", "https://cdn/x.png"} {
		if got := ls.GetFullPath(u); got != "" {
			t.Fatalf("GetFullPath(%q) = %q, want empty", u, got)
		}
	}
	got := ls.GetFullPath("/uploads/../../etc/passwd")
	if !strings.HasPrefix(got, ls.BasePath()) {
		t.Fatalf("path escaped base: %q", got)
	}
}

func TestValidateImage(t *testing.T) {
	if mime, err := ValidateImage(fileHeader(t, "a.png", pngHeader), MaxPhotoBytes); err != nil || mime != "image/png" {
		t.Fatalf("png = %q, %v", mime, err)
	}
	if _, err := ValidateImage(fileHeader(t, "a.png", []byte("plain text")), MaxPhotoBytes); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("text error = %v", err)
	}
	if _, err := ValidateImage(fileHeader(t, "a.png", pngHeader), 4); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("size error = %v", err)
	}
}
