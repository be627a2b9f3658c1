package service

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestToBase62(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, ""},
		{1, "1"},
		{10, "a"},
		{35, "z"},
		{36, "A"},
		{61, "Z"},
		{62, "10"},
		{3843, "ZZ"},
	}
	for _, tt := range tests {
		if got := toBase62(tt.n); got != tt.want {
			t.Errorf("toBase62(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRenameFile(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 4, 5, 0, time.Local)
	namePattern := regexp.MustCompile(`^[0-9a-zA-Z]+-[0-9a-zA-Z]*-20260901\.png$`)

	got := renameFile("photo.png", now)
	if !namePattern.MatchString(got) {
		t.Errorf("renameFile = %q, want match %v", got, namePattern)
	}
}

func TestRenameFile_PreservesExtension(t *testing.T) {
	now := time.Now()
	for _, tt := range []struct {
		in  string
		ext string
	}{
		{"a.png", ".png"},
		{"b.JPEG", ".JPEG"},
		{"noext", ""},
		{"archive.tar.gz", ".gz"},
	} {
		got := renameFile(tt.in, now)
		if tt.ext == "" {
			if strings.Contains(got, ".") {
				t.Errorf("renameFile(%q) = %q, want no extension", tt.in, got)
			}
			continue
		}
		if !strings.HasSuffix(got, tt.ext) {
			t.Errorf("renameFile(%q) = %q, want suffix %q", tt.in, got, tt.ext)
		}
	}
}

func TestRenameFile_Varies(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		seen[renameFile("a.png", now)] = true
	}
	// 随机段几乎不可能在 20 次内全部碰撞
	if len(seen) < 2 {
		t.Errorf("renameFile produced %d unique names in 20 calls", len(seen))
	}
}
