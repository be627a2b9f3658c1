package storage

import (
	"encoding/json"
	"testing"

	"imsheet-go/internal/config"
)

func TestNormalizeDir(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"empty falls back to default", "", DefaultDir},
		{"bare name", "photos", "photos/"},
		{"trailing slash", "photos/", "photos/"},
		{"leading slash", "/photos", "photos/"},
		{"nested", "a/b/c", "a/b/c/"},
		{"backslashes", `a\b`, "a/b/"},
		{"mixed separators", `a\b/c`, "a/b/c/"},
		{"only slashes", "///", DefaultDir},
		{"already normalized is idempotent", NormalizeDir("x/y"), "x/y/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDir(tt.dir); got != tt.want {
				t.Errorf("NormalizeDir(%q) = %q, want %q", tt.dir, got, tt.want)
			}
		})
	}
}

func TestFullKey_Idempotent(t *testing.T) {
	c := &CosClient{dir: "ImSheet/"}

	got := c.FullKey("a.png")
	if got != "ImSheet/a.png" {
		t.Errorf("FullKey(a.png) = %q, want ImSheet/a.png", got)
	}
	if again := c.FullKey(got); again != got {
		t.Errorf("FullKey(FullKey(k)) = %q, want %q", again, got)
	}
}

func TestObjectURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.CosConfig
		key  string
		want string
	}{
		{
			name: "bucket endpoint",
			cfg:  config.CosConfig{Bucket: "img-123", Region: "ap-guangzhou", UseSSL: true},
			key:  "a.png",
			want: "https://img-123.cos.ap-guangzhou.myqcloud.com/ImSheet/a.png",
		},
		{
			name: "plain http",
			cfg:  config.CosConfig{Bucket: "img-123", Region: "ap-guangzhou", UseSSL: false},
			key:  "a.png",
			want: "http://img-123.cos.ap-guangzhou.myqcloud.com/ImSheet/a.png",
		},
		{
			name: "custom domain",
			cfg:  config.CosConfig{Bucket: "img-123", Region: "ap-guangzhou", Domain: "img.example.com"},
			key:  "a.png",
			want: "https://img.example.com/ImSheet/a.png",
		},
		{
			name: "custom domain with scheme and trailing slash",
			cfg:  config.CosConfig{Bucket: "img-123", Region: "ap-guangzhou", Domain: "http://img.example.com/"},
			key:  "a.png",
			want: "http://img.example.com/ImSheet/a.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &CosClient{cfg: tt.cfg, dir: NormalizeDir(tt.cfg.Dir)}
			if got := c.ObjectURL(tt.key); got != tt.want {
				t.Errorf("ObjectURL(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestBuildPicOperations(t *testing.T) {
	raw := buildPicOperations("ImSheet/a.png", 75)

	var ops struct {
		IsPicInfo int `json:"is_pic_info"`
		Rules     []struct {
			FileID string `json:"fileid"`
			Rule   string `json:"rule"`
		} `json:"rules"`
	}
	if err := json.Unmarshal([]byte(raw), &ops); err != nil {
		t.Fatalf("unmarshal pic operations: %v", err)
	}
	if len(ops.Rules) != 1 {
		t.Fatalf("rules = %d, want 1", len(ops.Rules))
	}
	if ops.Rules[0].FileID != "ImSheet/a.png" {
		t.Errorf("fileid = %q, want ImSheet/a.png (in-place overwrite)", ops.Rules[0].FileID)
	}
	if ops.Rules[0].Rule != "imageMogr2/format/webp/quality/75!" {
		t.Errorf("rule = %q", ops.Rules[0].Rule)
	}
}

func TestBuildPicOperations_QualityOutOfRange(t *testing.T) {
	for _, q := range []int{0, -1, 101} {
		raw := buildPicOperations("k", q)
		var ops struct {
			Rules []struct {
				Rule string `json:"rule"`
			} `json:"rules"`
		}
		if err := json.Unmarshal([]byte(raw), &ops); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ops.Rules[0].Rule != "imageMogr2/format/webp/quality/80!" {
			t.Errorf("quality %d: rule = %q, want default 80", q, ops.Rules[0].Rule)
		}
	}
}

func TestTrimETag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"abc123"`, "abc123"},
		{"abc123", "abc123"},
		{`""`, ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := trimETag(tt.in); got != tt.want {
			t.Errorf("trimETag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
