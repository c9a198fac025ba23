package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScrapeTarget is one listing-site search to crawl in live mode.
type ScrapeTarget struct {
	// Brand as the site spells it in listing URLs, e.g. "skoda".
	Brand string `yaml:"brand"`
	// Pages is how many result pages to walk. Default: 5.
	Pages int `yaml:"pages"`
}

// SourcesFile is the YAML document listing scrape targets.
type SourcesFile struct {
	Targets []ScrapeTarget `yaml:"targets"`
}

// LoadSources parses the scrape targets YAML file.
func LoadSources(path string) (*SourcesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read sources file: %w", err)
	}

	var sf SourcesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(sf.Targets) == 0 {
		return nil, fmt.Errorf("config: %s lists no targets", path)
	}
	for i := range sf.Targets {
		if sf.Targets[i].Brand == "" {
			return nil, fmt.Errorf("config: %s: target %d has no brand", path, i)
		}
		if sf.Targets[i].Pages <= 0 {
			sf.Targets[i].Pages = 5
		}
	}
	return &sf, nil
}
