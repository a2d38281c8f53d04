package config

import (
	"fmt"
	"os"

	"github.com/climavida/heatzone-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// classifierFile is the layout of RECOMMENDATIONS_FILE. Keys left out keep
// their built-in defaults.
type classifierFile struct {
	Colors          domain.Palette         `yaml:"colors"`
	Recommendations domain.Recommendations `yaml:"recommendations"`
}

// Classifier builds the zone classifier from the configured thresholds and
// the optional recommendations override file.
func (c *Config) Classifier() (*domain.Classifier, error) {
	file := classifierFile{
		Colors:          domain.DefaultPalette,
		Recommendations: domain.DefaultRecommendations,
	}

	if c.RecommendationsFile != "" {
		data, err := os.ReadFile(c.RecommendationsFile)
		if err != nil {
			return nil, fmt.Errorf("read RECOMMENDATIONS_FILE: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse RECOMMENDATIONS_FILE %s: %w", c.RecommendationsFile, err)
		}
	}

	return domain.NewClassifier(c.Thresholds, file.Colors, file.Recommendations)
}
