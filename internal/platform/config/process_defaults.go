package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/moldindex-backend/internal/domain"
)

type processDefaultsFile struct {
	Processes []struct {
		Name     string   `yaml:"name"`
		Standard *float64 `yaml:"standard"`
	} `yaml:"processes"`
}

// LoadProcessDefaults reads standard process minutes from a YAML file such as
//
//	processes:
//	  - name: Foam
//	    standard: 75
//
// Processes not listed keep their built-in standard. An empty path returns the built-ins.
func LoadProcessDefaults(path string) (domain.ProcessDefaults, error) {
	if path == "" {
		return domain.NewProcessDefaults(nil)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.ProcessDefaults{}, fmt.Errorf("read process defaults: %w", err)
	}
	var f processDefaultsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return domain.ProcessDefaults{}, fmt.Errorf("parse process defaults %s: %w", path, err)
	}
	overrides := make(map[string]float64, len(f.Processes))
	for i, p := range f.Processes {
		if p.Standard == nil {
			return domain.ProcessDefaults{}, fmt.Errorf("process defaults %s: entry %d (%q) has no standard", path, i+1, p.Name)
		}
		if _, dup := overrides[p.Name]; dup {
			return domain.ProcessDefaults{}, fmt.Errorf("process defaults %s: %q listed twice", path, p.Name)
		}
		overrides[p.Name] = *p.Standard
	}
	defaults, err := domain.NewProcessDefaults(overrides)
	if err != nil {
		return domain.ProcessDefaults{}, fmt.Errorf("process defaults %s: %w", path, err)
	}
	return defaults, nil
}
