package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"poster.png":            "poster.png",
		"my  summer\tflyer.jpg": "my-summer-flyer.jpg",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\logo.webp`: "logo.webp",
		"   ":                   "file",
		"":                      "file",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	at := time.UnixMilli(1700000000123)
	tests := []struct {
		kind, org, file string
		want            string
		wantErr         bool
	}{
		{"", "", "a b.png", "events/1700000000123-a-b.png", false},
		{KindEvent, "", "x.png", "events/1700000000123-x.png", false},
		{KindLogo, "org-1", "ignored.png", "logos/org-1", false},
		{KindLogo, "", "x.png", "", true},
		{KindLogo, "../org", "x.png", "", true},
		{KindOrganizationLogo, "", "crest.png", "organization-logos/1700000000123-crest.png", false},
		{"avatar", "", "x.png", "", true},
	}
	for _, tc := range tests {
		got, err := ObjectKey(tc.kind, tc.org, tc.file, at)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidUpload) {
				t.Fatalf("ObjectKey(%q, %q): expected ErrInvalidUpload, got %v", tc.kind, tc.org, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ObjectKey(%q, %q, %q) = %q, %v; want %q", tc.kind, tc.org, tc.file, got, err, tc.want)
		}
	}
}

func TestUploaderStoresImage(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore("oms-bucket", "us-east-1")
	u := NewUploader(store, 1024)
	u.now = func() time.Time { return time.UnixMilli(42) }

	url, err := u.Upload(context.Background(), UploadRequest{
		Filename:    "flyer.png",
		ContentType: "image/png",
		Size:        4,
		Body:        strings.NewReader("\x89PNG"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://oms-bucket.s3.us-east-1.amazonaws.com/events/42-flyer.png" {
		t.Fatalf("unexpected url %s", url)
	}
	obj, ok := store.Object("events/42-flyer.png")
	if !ok || obj.ContentType != "image/png" || !bytes.Equal(obj.Body, []byte("\x89PNG")) {
		t.Fatalf("object not stored as expected: %+v", obj)
	}
}

type seekCheckStore struct {
	*MemoryStore
	seekable bool
}

func (s *seekCheckStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, s.seekable = body.(io.Seeker)
	return s.MemoryStore.Put(ctx, key, body, size, contentType)
}

// S3 signs the payload and needs to rewind the body when it is sent over plain HTTP.
func TestUploaderPassesSeekableBodyThrough(t *testing.T) {
	t.Parallel()

	store := &seekCheckStore{MemoryStore: NewMemoryStore("b", "r")}
	u := NewUploader(store, 1024)
	if _, err := u.Upload(context.Background(), UploadRequest{
		Filename:    "flyer.png",
		ContentType: "image/png",
		Size:        4,
		Body:        bytes.NewReader([]byte("\x89PNG")),
	}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !store.seekable {
		t.Fatal("store received a non-seekable body")
	}
}

func TestUploaderRejections(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore("b", "r")
	u := NewUploader(store, 8)
	ctx := context.Background()

	if _, err := u.Upload(ctx, UploadRequest{ContentType: "application/pdf", Size: 1, Body: strings.NewReader("x")}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := u.Upload(ctx, UploadRequest{ContentType: "image/png", Size: 9, Body: strings.NewReader("123456789")}); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for declared size, got %v", err)
	}
	if _, err := u.Upload(ctx, UploadRequest{ContentType: "image/png", Body: strings.NewReader("123456789")}); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for streamed body, got %v", err)
	}
	if _, err := u.Upload(ctx, UploadRequest{ContentType: "image/png", Body: strings.NewReader("")}); !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload for empty body, got %v", err)
	}
	if len(store.Keys()) != 0 {
		t.Fatalf("nothing should be stored, got %v", store.Keys())
	}

	if _, err := NewUploader(nil, 0).Upload(ctx, UploadRequest{ContentType: "image/png"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestS3ConfigConfigured(t *testing.T) {
	t.Parallel()

	cfg := S3Config{Region: "us-east-1", Bucket: "b", AccessKeyID: "id"}
	if cfg.Configured() {
		t.Fatalf("config without secret should not count as configured")
	}
	cfg.SecretAccessKey = "secret"
	if !cfg.Configured() {
		t.Fatalf("complete config should be configured")
	}
}
