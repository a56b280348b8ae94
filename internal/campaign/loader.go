package campaign

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kstephens0331/carsub/internal/types"
)

type directoriesFile struct {
	Directories []types.Directory `yaml:"directories"`
}

// LoadDirectories reads the static directory list from a YAML file:
//
//	directories:
//	  - name: Yelp
//	    url: https://biz.yelp.com
//	    dr: 94
//	  - name: Auto Repair Network
//	    url: https://autorepairnetwork.example
//	    dr: 35
//	    tier: niche
func LoadDirectories(path string) ([]types.Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directories %s: %w", path, err)
	}

	var f directoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse directories %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Directories))
	out := make([]types.Directory, 0, len(f.Directories))
	for i, d := range f.Directories {
		if d.URL == "" {
			return nil, fmt.Errorf("%s: directory %d (%q) has no url", path, i, d.Name)
		}
		if seen[d.URL] {
			continue // duplicate URL, first occurrence wins
		}
		seen[d.URL] = true
		out = append(out, d)
	}
	return out, nil
}
