package storage

import (
	"context"
	"errors"
	"testing"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"shop1.yaml", "shop1.yaml", false},
		{"vendors/shop1.yaml", "vendors/shop1.yaml", false},
		{"vendors/../shop1.yaml", "shop1.yaml", false},
		{"../etc/passwd", "", true},
		{"/etc/passwd", "", true},
		{"..\\secret.yaml", "", true},
		{"", "", true},
		{".", "", true},
	}

	for _, tt := range tests {
		got, err := CleanKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("CleanKey(%q) err = %v, wantErr %v", tt.key, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("CleanKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLocalStorage_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())

	key, err := s.Put(ctx, "archive/shop1.yaml", []byte("shop: Связной"), "application/yaml")
	if err != nil {
		t.Fatalf("Put 失败: %v", err)
	}
	if key != "archive/shop1.yaml" {
		t.Errorf("key = %s, want archive/shop1.yaml", key)
	}

	data, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if string(data) != "shop: Связной" {
		t.Errorf("data = %q", data)
	}

	if _, err := s.Get(ctx, "missing.yaml"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing.yaml err = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, "../outside.yaml"); err == nil {
		t.Error("路径穿越应被拒绝")
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(context.Background(), &Config{Provider: "ftp"}); err == nil {
		t.Error("未知提供者应返回错误")
	}
	p, err := NewProvider(context.Background(), &Config{Provider: "local", BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewProvider 失败: %v", err)
	}
	if _, ok := p.(*LocalStorage); !ok {
		t.Errorf("provider 类型 = %T, want *LocalStorage", p)
	}
}
