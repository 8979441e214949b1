package site

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Content is everything the landing page renders besides the form: hero,
// menu grid, about blurb and footer. Loaded once at startup from YAML.
type Content struct {
	Restaurant Restaurant    `yaml:"restaurant"`
	Hero       Hero          `yaml:"hero"`
	About      About         `yaml:"about"`
	Menu       []MenuSection `yaml:"menu"`
	Footer     Footer        `yaml:"footer"`
}

type Restaurant struct {
	Name    string `yaml:"name" json:"name"`
	Tagline string `yaml:"tagline"`
}

type Hero struct {
	Heading    string `yaml:"heading"`
	Subheading string `yaml:"subheading"`
	CTALabel   string `yaml:"cta_label"`
}

type About struct {
	Heading string `yaml:"heading"`
	Body    string `yaml:"body"`
}

type MenuSection struct {
	Title string     `yaml:"title" json:"title"`
	Items []MenuItem `yaml:"items" json:"items"`
}

type MenuItem struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Price       float64 `yaml:"price" json:"price"`
}

type Footer struct {
	Address string   `yaml:"address"`
	Phone   string   `yaml:"phone"`
	Email   string   `yaml:"email"`
	Hours   []string `yaml:"hours"`
}

// Load reads and validates the site content file.
func Load(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site content: %w", err)
	}

	var content Content
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("parse site content: %w", err)
	}

	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("site content validation failed: %w", err)
	}

	return &content, nil
}

func (c *Content) Validate() error {
	if c.Restaurant.Name == "" {
		return fmt.Errorf("restaurant name is required")
	}

	// Дубликаты блюд внутри раздела — почти всегда ошибка правки YAML.
	for _, section := range c.Menu {
		if section.Title == "" {
			return fmt.Errorf("menu section without title")
		}
		seen := make(map[string]bool, len(section.Items))
		for _, item := range section.Items {
			if item.Name == "" {
				return fmt.Errorf("menu item without name in section %q", section.Title)
			}
			if seen[item.Name] {
				return fmt.Errorf("duplicate menu item %q in section %q", item.Name, section.Title)
			}
			seen[item.Name] = true
			if item.Price < 0 {
				return fmt.Errorf("menu item %q has negative price", item.Name)
			}
		}
	}

	return nil
}
