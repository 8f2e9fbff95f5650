package execution

import (
	"fmt"
	"strings"
	"time"
)

// Profile describes how a language is built and run inside a sandbox.
//
// Profiles are configuration data: they are loaded once at startup and never
// mutated afterwards.
type Profile struct {
	Language Language
	// Image is the container image carrying the toolchain.
	Image string
	// SourceFile is the name the submitted source is written under.
	SourceFile string
	// CompileCommand is executed once per job. Empty for interpreted languages.
	CompileCommand []string
	// RunCommand is executed once per test case.
	RunCommand []string
	// Env holds extra KEY=VALUE pairs for every process in the sandbox.
	Env []string

	TimeLimit        time.Duration
	MemoryLimitBytes int64
}

// Compiled reports whether the profile has a separate build step.
func (p Profile) Compiled() bool {
	return len(p.CompileCommand) > 0
}

// Command renders the compile-and-run command line.
func (p Profile) Command() string {
	run := strings.Join(p.RunCommand, " ")
	if !p.Compiled() {
		return run
	}
	return strings.Join(p.CompileCommand, " ") + " && " + run
}

// DefaultLimits returns the limits applied when a job carries no overrides.
func (p Profile) DefaultLimits() RunLimits {
	return RunLimits{
		TimeLimit:        p.TimeLimit,
		MemoryLimitBytes: p.MemoryLimitBytes,
	}
}

// Validate checks that the profile is complete enough to provision a sandbox.
func (p Profile) Validate() error {
	switch {
	case p.Language == "":
		return fmt.Errorf("profile missing language identifier")
	case p.Image == "":
		return fmt.Errorf("profile %q missing image", p.Language)
	case p.SourceFile == "":
		return fmt.Errorf("profile %q missing source filename", p.Language)
	case strings.ContainsAny(p.SourceFile, "/\\'\" "):
		return fmt.Errorf("profile %q has unsafe source filename %q", p.Language, p.SourceFile)
	case len(p.RunCommand) == 0:
		return fmt.Errorf("profile %q missing run command", p.Language)
	case p.TimeLimit <= 0:
		return fmt.Errorf("profile %q must have a positive time limit", p.Language)
	case p.MemoryLimitBytes <= 0:
		return fmt.Errorf("profile %q must have a positive memory limit", p.Language)
	}
	return nil
}
