package runtime

import (
	"time"

	"codejudge/internal/domain/execution"
)

const mb = 1024 * 1024

// DefaultProfiles returns the built-in language table.
func DefaultProfiles() []execution.Profile {
	return []execution.Profile{
		{
			Language:         execution.LanguagePython,
			Image:            "python:3.12-alpine",
			SourceFile:       "solution.py",
			RunCommand:       []string{"python3", "solution.py"},
			Env:              []string{"PYTHONDONTWRITEBYTECODE=1"},
			TimeLimit:        5 * time.Second,
			MemoryLimitBytes: 128 * mb,
		},
		{
			Language:         execution.LanguageJavaScript,
			Image:            "node:20-alpine",
			SourceFile:       "solution.js",
			RunCommand:       []string{"node", "solution.js"},
			TimeLimit:        5 * time.Second,
			MemoryLimitBytes: 128 * mb,
		},
		{
			Language:         execution.LanguageJava,
			Image:            "eclipse-temurin:17-jdk-alpine",
			SourceFile:       "Solution.java",
			CompileCommand:   []string{"javac", "-encoding", "UTF-8", "Solution.java"},
			RunCommand:       []string{"java", "-XX:+UseSerialGC", "-Xss64m", "Solution"},
			TimeLimit:        10 * time.Second,
			MemoryLimitBytes: 256 * mb,
		},
		{
			Language:         execution.LanguageCPP,
			Image:            "gcc:13",
			SourceFile:       "solution.cpp",
			CompileCommand:   []string{"g++", "-std=c++17", "-O2", "-o", "solution", "solution.cpp"},
			RunCommand:       []string{"./solution"},
			TimeLimit:        10 * time.Second,
			MemoryLimitBytes: 256 * mb,
		},
		{
			Language:         execution.LanguageC,
			Image:            "gcc:13",
			SourceFile:       "solution.c",
			CompileCommand:   []string{"gcc", "-O2", "-o", "solution", "solution.c", "-lm"},
			RunCommand:       []string{"./solution"},
			TimeLimit:        10 * time.Second,
			MemoryLimitBytes: 256 * mb,
		},
		{
			Language:         execution.LanguageGo,
			Image:            "golang:1.22-alpine",
			SourceFile:       "main.go",
			CompileCommand:   []string{"go", "build", "-o", "solution", "main.go"},
			RunCommand:       []string{"./solution"},
			Env:              []string{"GOCACHE=/tmp/go-cache", "GOPATH=/tmp/go", "CGO_ENABLED=0"},
			TimeLimit:        10 * time.Second,
			MemoryLimitBytes: 256 * mb,
		},
		{
			Language:         execution.LanguageRust,
			Image:            "rust:1.79-alpine",
			SourceFile:       "main.rs",
			CompileCommand:   []string{"rustc", "-O", "-o", "main", "main.rs"},
			RunCommand:       []string{"./main"},
			TimeLimit:        15 * time.Second,
			MemoryLimitBytes: 512 * mb,
		},
		{
			Language:         execution.LanguagePHP,
			Image:            "php:8.3-cli-alpine",
			SourceFile:       "solution.php",
			RunCommand:       []string{"php", "solution.php"},
			TimeLimit:        5 * time.Second,
			MemoryLimitBytes: 128 * mb,
		},
		{
			Language:         execution.LanguageRuby,
			Image:            "ruby:3.3-alpine",
			SourceFile:       "solution.rb",
			RunCommand:       []string{"ruby", "solution.rb"},
			TimeLimit:        5 * time.Second,
			MemoryLimitBytes: 128 * mb,
		},
		{
			Language:         execution.LanguageCSharp,
			Image:            "mono:6.12",
			SourceFile:       "Program.cs",
			CompileCommand:   []string{"mcs", "-optimize+", "-out:Program.exe", "Program.cs"},
			RunCommand:       []string{"mono", "Program.exe"},
			TimeLimit:        10 * time.Second,
			MemoryLimitBytes: 256 * mb,
		},
	}
}
