package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeObjectName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"N°1-recibo.jpg", "N°1-recibo.jpg"},
		{"N°2-mi recibo.jpg", "N°2-mi-recibo.jpg"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"a\\b\tc", "a_b-c"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeObjectName(tt.in); got != tt.want {
			t.Errorf("SanitizeObjectName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLocalStoreUploadAndDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	url, err := store.Upload(context.Background(), "N°1-recibo.jpg", strings.NewReader("jpeg bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/uploads/N°1-recibo.jpg" {
		t.Errorf("url = %q, want /uploads/N°1-recibo.jpg", url)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), "N°1-recibo.jpg"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("stored content = %q", data)
	}

	if err := store.Delete(context.Background(), url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "N°1-recibo.jpg")); !os.IsNotExist(err) {
		t.Error("object still exists after Delete")
	}
}

func TestLocalStoreUploadSanitizesName(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	url, err := store.Upload(context.Background(), "N°1-mi recibo.jpg", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/uploads/N°1-mi-recibo.jpg" {
		t.Errorf("url = %q", url)
	}
}

func TestLocalStoreDeleteRejectsForeignURL(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	for _, url := range []string{
		"https://storage.googleapis.com/other/obj.jpg",
		"/uploads/../secrets.txt",
		"/uploads/",
	} {
		if err := store.Delete(context.Background(), url); err == nil {
			t.Errorf("Delete(%q) accepted a foreign url", url)
		}
	}
}
