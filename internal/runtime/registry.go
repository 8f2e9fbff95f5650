package runtime

import (
	"fmt"
	"slices"
	"sort"

	"codejudge/internal/domain/execution"
)

var _ execution.ProfileResolver = (*Registry)(nil)

// Registry maps language identifiers to their profiles. It is immutable once
// built and safe for concurrent lookups.
type Registry struct {
	profiles map[execution.Language]execution.Profile
}

// NewRegistry constructs a registry from the supplied profiles.
func NewRegistry(profiles ...execution.Profile) (*Registry, error) {
	reg := &Registry{
		profiles: make(map[execution.Language]execution.Profile, len(profiles)),
	}

	for _, profile := range profiles {
		if err := profile.Validate(); err != nil {
			return nil, err
		}
		if _, exists := reg.profiles[profile.Language]; exists {
			return nil, fmt.Errorf("duplicate profile for language %q", profile.Language)
		}
		reg.profiles[profile.Language] = cloneProfile(profile)
	}

	if len(reg.profiles) == 0 {
		return nil, fmt.Errorf("at least one language profile must be registered")
	}

	return reg, nil
}

// Resolve returns the profile registered for lang.
func (r *Registry) Resolve(lang execution.Language) (execution.Profile, error) {
	profile, ok := r.profiles[lang]
	if !ok {
		return execution.Profile{}, fmt.Errorf("%w: %q", execution.ErrUnsupportedLanguage, lang)
	}
	return cloneProfile(profile), nil
}

// Languages lists the registered identifiers in lexical order.
func (r *Registry) Languages() []execution.Language {
	langs := make([]execution.Language, 0, len(r.profiles))
	for lang := range r.profiles {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Profiles lists every registered profile ordered by language.
func (r *Registry) Profiles() []execution.Profile {
	langs := r.Languages()
	profiles := make([]execution.Profile, 0, len(langs))
	for _, lang := range langs {
		profiles = append(profiles, cloneProfile(r.profiles[lang]))
	}
	return profiles
}

// Images lists the distinct images referenced by the registered profiles.
func (r *Registry) Images() []string {
	var images []string
	for _, profile := range r.Profiles() {
		if !slices.Contains(images, profile.Image) {
			images = append(images, profile.Image)
		}
	}
	return images
}

func cloneProfile(p execution.Profile) execution.Profile {
	p.CompileCommand = slices.Clone(p.CompileCommand)
	p.RunCommand = slices.Clone(p.RunCommand)
	p.Env = slices.Clone(p.Env)
	return p
}
