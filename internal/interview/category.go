package interview

import (
	"fmt"
	"strings"
)

// Category is the interview category.
type Category string

const (
	CategoryDSA       Category = "dsa"
	CategoryAptitude  Category = "aptitude"
	CategoryTechnical Category = "technical"
	CategoryHR        Category = "hr"
	CategoryCustom    Category = "custom"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryDSA,
	CategoryAptitude,
	CategoryTechnical,
	CategoryHR,
	CategoryCustom,
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Verdict reports whether answers in this category are judged per
// question as correct, partially correct or incorrect. The other
// categories are scored with free-form sub-scores.
func (c Category) Verdict() bool {
	return c == CategoryDSA || c == CategoryAptitude
}

// Label is the human-readable name used in reports.
func (c Category) Label() string {
	switch c {
	case CategoryDSA:
		return "DSA"
	case CategoryAptitude:
		return "Aptitude"
	case CategoryTechnical:
		return "Technical"
	case CategoryHR:
		return "HR"
	case CategoryCustom:
		return "Custom"
	default:
		return string(c)
	}
}

// Difficulty is the requested question difficulty.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyPro          Difficulty = "pro"
)

// ParseDifficulty parses a difficulty name. An empty string yields
// DifficultyIntermediate.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case "":
		return DifficultyIntermediate, nil
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyPro:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}
