package runtime

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"codejudge/internal/domain/execution"
)

// profilesFile is the on-disk layout of a profile override file:
//
//	languages:
//	  python:
//	    image: python:3.11-alpine
//	    time_limit: 3s
//	  kotlin:
//	    image: zenika/kotlin
//	    source_file: solution.kt
//	    compile: [kotlinc, solution.kt, -include-runtime, -d, solution.jar]
//	    run: [java, -jar, solution.jar]
//	    time_limit: 10s
//	    memory_limit_mb: 512
type profilesFile struct {
	Languages map[string]profileEntry `yaml:"languages"`
}

type profileEntry struct {
	Image         string        `yaml:"image"`
	SourceFile    string        `yaml:"source_file"`
	Compile       []string      `yaml:"compile"`
	Run           []string      `yaml:"run"`
	Env           []string      `yaml:"env"`
	TimeLimit     time.Duration `yaml:"time_limit"`
	MemoryLimitMB int64         `yaml:"memory_limit_mb"`
	Disabled      bool          `yaml:"disabled"`
}

// LoadProfiles reads a YAML override file and applies it on top of base.
// Entries for known languages replace only the fields they set; entries for
// unknown languages add a new profile. Disabled entries drop the language.
func LoadProfiles(path string, base []execution.Profile) ([]execution.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	return ParseProfiles(data, base)
}

// ParseProfiles is LoadProfiles for an in-memory document.
func ParseProfiles(data []byte, base []execution.Profile) ([]execution.Profile, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode profiles file: %w", err)
	}

	merged := make([]execution.Profile, 0, len(base)+len(file.Languages))
	seen := make(map[execution.Language]bool, len(base))
	for _, profile := range base {
		seen[profile.Language] = true
		entry, ok := file.Languages[string(profile.Language)]
		if !ok {
			merged = append(merged, profile)
			continue
		}
		if entry.Disabled {
			continue
		}
		merged = append(merged, entry.apply(profile))
	}

	for name, entry := range file.Languages {
		lang := execution.Language(name)
		if seen[lang] || entry.Disabled {
			continue
		}
		merged = append(merged, entry.apply(execution.Profile{Language: lang}))
	}

	for _, profile := range merged {
		if err := profile.Validate(); err != nil {
			return nil, err
		}
	}

	return merged, nil
}

func (e profileEntry) apply(p execution.Profile) execution.Profile {
	if e.Image != "" {
		p.Image = e.Image
	}
	if e.SourceFile != "" {
		p.SourceFile = e.SourceFile
	}
	if e.Compile != nil {
		p.CompileCommand = e.Compile
	}
	if len(e.Run) > 0 {
		p.RunCommand = e.Run
	}
	if e.Env != nil {
		p.Env = e.Env
	}
	if e.TimeLimit > 0 {
		p.TimeLimit = e.TimeLimit
	}
	if e.MemoryLimitMB > 0 {
		p.MemoryLimitBytes = e.MemoryLimitMB * mb
	}
	return p
}
