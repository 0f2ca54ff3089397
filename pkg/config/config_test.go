package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "boards")
	var s sample
	if err := Parse([]byte("name: ${SAMPLE_NAME}\nport: 80\ntimeout: 2s\n"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "boards" || s.Port != 80 || s.Timeout != 2*time.Second {
		t.Errorf("parsed = %+v", s)
	}
}

func TestParseValidates(t *testing.T) {
	var s sample
	err := Parse([]byte("port: 0\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "port must be positive") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	s := sample{Port: 8080}
	if err := LoadOptional(filepath.Join(dir, "missing.yaml"), &s); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if s.Port != 8080 {
		t.Errorf("defaults lost: %+v", s)
	}

	path := filepath.Join(dir, "c.yaml")
	if err := os.WriteFile(path, []byte("name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadOptional(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "x" || s.Port != 8080 {
		t.Errorf("merged = %+v", s)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Error("expected error")
	}
}
