package runtime

import (
	"errors"
	"testing"
	"time"

	"codejudge/internal/domain/execution"
)

func TestDefaultProfilesAreValid(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(DefaultProfiles()...)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	if len(reg.Languages()) != len(DefaultProfiles()) {
		t.Fatalf("expected %d languages, got %d", len(DefaultProfiles()), len(reg.Languages()))
	}

	profile, err := reg.Resolve(execution.LanguageCPP)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !profile.Compiled() {
		t.Fatalf("expected cpp profile to have a build step")
	}
}

func TestRegistryResolveUnknownLanguage(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(DefaultProfiles()...)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	_, err = reg.Resolve("fortran")
	if !errors.Is(err, execution.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestRegistryResolveReturnsCopy(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(DefaultProfiles()...)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	profile, _ := reg.Resolve(execution.LanguagePython)
	profile.RunCommand[0] = "rm"

	again, _ := reg.Resolve(execution.LanguagePython)
	if again.RunCommand[0] != "python3" {
		t.Fatalf("registry profile was mutated through a resolved copy")
	}
}

func TestNewRegistryRejectsDuplicatesAndInvalid(t *testing.T) {
	t.Parallel()

	profiles := DefaultProfiles()
	if _, err := NewRegistry(profiles[0], profiles[0]); err == nil {
		t.Fatalf("expected duplicate profile error")
	}

	broken := profiles[0]
	broken.Image = ""
	if _, err := NewRegistry(broken); err == nil {
		t.Fatalf("expected validation error for missing image")
	}

	if _, err := NewRegistry(); err == nil {
		t.Fatalf("expected error for empty registry")
	}
}

func TestRegistryImagesDeduplicates(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(DefaultProfiles()...)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	count := 0
	for _, image := range reg.Images() {
		if image == "gcc:13" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected gcc image once, got %d", count)
	}
}

func TestParseProfilesOverridesAndExtends(t *testing.T) {
	t.Parallel()

	doc := []byte(`
languages:
  python:
    image: python:3.11-alpine
    time_limit: 3s
  ruby:
    disabled: true
  lua:
    image: nickblah/lua:5.4-alpine
    source_file: solution.lua
    run: [lua, solution.lua]
    time_limit: 4s
    memory_limit_mb: 64
`)

	profiles, err := ParseProfiles(doc, DefaultProfiles())
	if err != nil {
		t.Fatalf("ParseProfiles returned error: %v", err)
	}

	reg, err := NewRegistry(profiles...)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	python, err := reg.Resolve(execution.LanguagePython)
	if err != nil {
		t.Fatalf("Resolve python: %v", err)
	}
	if python.Image != "python:3.11-alpine" || python.TimeLimit != 3*time.Second {
		t.Fatalf("python override not applied: %+v", python)
	}
	if python.SourceFile != "solution.py" {
		t.Fatalf("expected untouched fields to be preserved, got %q", python.SourceFile)
	}

	if _, err := reg.Resolve(execution.LanguageRuby); err == nil {
		t.Fatalf("expected ruby to be disabled")
	}

	lua, err := reg.Resolve("lua")
	if err != nil {
		t.Fatalf("Resolve lua: %v", err)
	}
	if lua.MemoryLimitBytes != 64*mb {
		t.Fatalf("unexpected lua memory limit: %d", lua.MemoryLimitBytes)
	}
}

func TestParseProfilesRejectsIncompleteNewLanguage(t *testing.T) {
	t.Parallel()

	doc := []byte("languages:\n  lua:\n    image: lua\n")
	if _, err := ParseProfiles(doc, DefaultProfiles()); err == nil {
		t.Fatalf("expected validation error for incomplete profile")
	}
}
