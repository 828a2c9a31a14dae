// Package site holds the static marketing copy, pricing and sample COA
// lookup table served to the public site.
package site

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaults []byte

type Company struct {
	Name       string `yaml:"name" json:"name"`
	Tagline    string `yaml:"tagline" json:"tagline"`
	Email      string `yaml:"email" json:"email"`
	Phone      string `yaml:"phone" json:"phone"`
	Address    string `yaml:"address" json:"address"`
	Turnaround string `yaml:"turnaround" json:"turnaround"`
}

type PricingTier struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Price       float64  `yaml:"price" json:"price"`
	Description string   `yaml:"description" json:"description"`
	Features    []string `yaml:"features" json:"features"`
	Popular     bool     `yaml:"popular" json:"popular"`
}

// SampleCOA is a showcase certificate available without a database.
type SampleCOA struct {
	Code         string   `yaml:"code" json:"code"`
	Compound     string   `yaml:"compound" json:"compound"`
	Client       string   `yaml:"client" json:"client"`
	AnalysisType string   `yaml:"analysisType" json:"analysisType"`
	TestDate     string   `yaml:"testDate" json:"testDate"`
	Purity       *float64 `yaml:"purity" json:"purity,omitempty"`
	Result       string   `yaml:"result" json:"result"`
	FileURL      string   `yaml:"fileUrl" json:"fileUrl,omitempty"`
}

type Config struct {
	Company    Company       `yaml:"company" json:"company"`
	Pricing    []PricingTier `yaml:"pricing" json:"pricing"`
	SampleCOAs []SampleCOA   `yaml:"sampleCoas" json:"sampleCoas"`
}

// Default returns the embedded configuration.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaults, cfg); err != nil {
		return nil, fmt.Errorf("parse embedded site config: %w", err)
	}
	return cfg, nil
}

// Load returns the embedded configuration with the file at path laid over
// it. Sections missing from the file keep their embedded values.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse site config %s: %w", path, err)
	}
	return cfg, nil
}

// Lookup finds a sample COA by code, ignoring case.
func (c *Config) Lookup(code string) (SampleCOA, bool) {
	code = strings.TrimSpace(code)
	for _, s := range c.SampleCOAs {
		if strings.EqualFold(s.Code, code) {
			return s, true
		}
	}
	return SampleCOA{}, false
}

// Tier finds a pricing tier by id.
func (c *Config) Tier(id string) (PricingTier, bool) {
	for _, tier := range c.Pricing {
		if tier.ID == id {
			return tier, true
		}
	}
	return PricingTier{}, false
}
