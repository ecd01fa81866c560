package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/magfest/ubersystem/pkg/core/badges"
	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/core/volunteers"
)

// DatabaseURLEnv overrides databaseURL from the config file when set
const DatabaseURLEnv = "UBER_DATABASE_URL"

// BadgeRange reserves a block of badge numbers for one badge type
type BadgeRange struct {
	Type        string `yaml:"type" validate:"required"`
	Low         int    `yaml:"low" validate:"min=0"`
	High        int    `yaml:"high" validate:"gtefield=Low"`
	Preassigned bool   `yaml:"preassigned,omitempty"`
}

// PseudoType maps a registration-only badge type to the type it is numbered as
type PseudoType struct {
	Type     string `yaml:"type" validate:"required"`
	RealType string `yaml:"realType" validate:"required"`
}

// JobTemplate defines a recurring volunteer job
type JobTemplate struct {
	Name        string    `yaml:"name" validate:"required"`
	Description string    `yaml:"description,omitempty"`
	Department  string    `yaml:"department" validate:"required"`
	Type        string    `yaml:"type,omitempty"`
	RRule       string    `yaml:"rrule" validate:"required"`
	Start       time.Time `yaml:"start" validate:"required"`
	End         time.Time `yaml:"end" validate:"required,gtefield=Start"`
	Duration    int       `yaml:"duration" validate:"min=1"`
	Slots       int       `yaml:"slots" validate:"min=1"`
	Weight      float64   `yaml:"weight,omitempty" validate:"omitempty,gt=0"`
	Extra15     bool      `yaml:"extra15,omitempty"`
	// Visibility is "members" (default) or "public"
	Visibility string `yaml:"visibility,omitempty"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL          string        `yaml:"databaseURL" validate:"required"`
	NumberedBadges       bool          `yaml:"numberedBadges"`
	ShiftCustomBadges    bool          `yaml:"shiftCustomBadges"`
	PrintedBadgeDeadline *time.Time    `yaml:"printedBadgeDeadline,omitempty"`
	AtTheCon             bool          `yaml:"atTheCon,omitempty"`
	BadgeLockTimeout     time.Duration `yaml:"badgeLockTimeout,omitempty" validate:"min=0"`
	BadgeRanges          []BadgeRange  `yaml:"badgeRanges" validate:"required,min=1,dive"`
	PseudoTypes          []PseudoType  `yaml:"pseudoTypes,omitempty" validate:"dive"`
	JobTemplates         []JobTemplate `yaml:"jobTemplates,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from uber_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads uber_config.<env>.yaml, falling back to uber_config.yaml.
// .env.<env> and .env are read into the environment first; variables already set win.
func LoadWithEnv(env string) (*Config, error) {
	if err := loadDotEnv(env); err != nil {
		return nil, err
	}

	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if url := os.Getenv(DatabaseURLEnv); url != "" {
		cfg.DatabaseURL = url
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and the badge ranges, pseudo types
// and job templates it describes
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if err := validateBadgeRanges(cfg.BadgeRanges); err != nil {
		return err
	}

	ranged := make(map[model.BadgeType]bool, len(cfg.BadgeRanges))
	for _, r := range cfg.BadgeRanges {
		t, _ := model.ParseBadgeType(r.Type)
		ranged[t] = true
	}

	for i, p := range cfg.PseudoTypes {
		pseudo, err := model.ParseBadgeType(p.Type)
		if err != nil {
			return fmt.Errorf("invalid badge type in pseudoTypes[%d]: %w", i, err)
		}
		if !pseudo.IsPseudo() {
			return fmt.Errorf("pseudoTypes[%d]: %s is not a pseudo badge type", i, pseudo.Label())
		}
		realType, err := model.ParseBadgeType(p.RealType)
		if err != nil {
			return fmt.Errorf("invalid real type in pseudoTypes[%d]: %w", i, err)
		}
		if !ranged[realType] {
			return fmt.Errorf("pseudoTypes[%d]: %s has no badge range", i, realType.Label())
		}
	}

	for i, tmpl := range cfg.JobTemplates {
		if _, err := rrule.StrToRRule(tmpl.RRule); err != nil {
			return fmt.Errorf("invalid rrule in jobTemplates[%d]: %w", i, err)
		}
		if _, err := model.ParseJobType(tmpl.Type); err != nil {
			return fmt.Errorf("invalid job type in jobTemplates[%d]: %w", i, err)
		}
		if _, err := model.ParseJobVisibility(tmpl.Visibility); err != nil {
			return fmt.Errorf("invalid job visibility in jobTemplates[%d]: %w", i, err)
		}
	}

	return nil
}

func validateBadgeRanges(ranges []BadgeRange) error {
	seen := make(map[model.BadgeType]bool, len(ranges))
	for i, r := range ranges {
		t, err := model.ParseBadgeType(r.Type)
		if err != nil {
			return fmt.Errorf("invalid badge type in badgeRanges[%d]: %w", i, err)
		}
		if t.IsPseudo() {
			return fmt.Errorf("badgeRanges[%d]: %s is a pseudo type and cannot own numbers", i, t.Label())
		}
		if seen[t] {
			return fmt.Errorf("badgeRanges[%d]: %s has more than one range", i, t.Label())
		}
		seen[t] = true
	}

	sorted := append([]BadgeRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Low <= prev.High {
			return fmt.Errorf("badge ranges overlap: %s (%d - %d) and %s (%d - %d)",
				prev.Type, prev.Low, prev.High, cur.Type, cur.Low, cur.High)
		}
	}
	return nil
}

// BadgeSettings converts the badge configuration for the numbering core.
// The config must have passed Validate.
func (c *Config) BadgeSettings() *badges.Settings {
	settings := &badges.Settings{
		Ranges:            make(map[model.BadgeType]badges.Range, len(c.BadgeRanges)),
		Preassigned:       make(map[model.BadgeType]bool),
		PseudoTypes:       make(map[model.BadgeType]model.BadgeType, len(c.PseudoTypes)),
		NumberedBadges:    c.NumberedBadges,
		ShiftCustomBadges: c.ShiftCustomBadges,
		AtTheCon:          c.AtTheCon,
	}
	if c.PrintedBadgeDeadline != nil {
		settings.PrintedBadgeDeadline = *c.PrintedBadgeDeadline
	}

	for _, r := range c.BadgeRanges {
		t, _ := model.ParseBadgeType(r.Type)
		settings.Ranges[t] = badges.Range{Low: r.Low, High: r.High}
		if r.Preassigned {
			settings.Preassigned[t] = true
		}
	}
	for _, p := range c.PseudoTypes {
		pseudo, _ := model.ParseBadgeType(p.Type)
		realType, _ := model.ParseBadgeType(p.RealType)
		settings.PseudoTypes[pseudo] = realType
	}

	return settings
}

// Templates returns the configured job templates for expansion
func (c *Config) Templates() []volunteers.JobTemplate {
	templates := make([]volunteers.JobTemplate, 0, len(c.JobTemplates))
	for _, t := range c.JobTemplates {
		jobType, _ := model.ParseJobType(t.Type)
		visibility, _ := model.ParseJobVisibility(t.Visibility)
		templates = append(templates, volunteers.JobTemplate{
			Name:         t.Name,
			Description:  t.Description,
			DepartmentID: t.Department,
			Type:         jobType,
			RRule:        t.RRule,
			Start:        t.Start,
			End:          t.End,
			Duration:     t.Duration,
			Slots:        t.Slots,
			Weight:       t.Weight,
			Extra15:      t.Extra15,
			Visibility:   visibility,
		})
	}
	return templates
}

// Template returns the job template with the given name
func (c *Config) Template(name string) (volunteers.JobTemplate, error) {
	for _, t := range c.Templates() {
		if t.Name == name {
			return t, nil
		}
	}
	return volunteers.JobTemplate{}, fmt.Errorf("no job template named %q", name)
}

func loadDotEnv(env string) error {
	candidates := []string{".env"}
	if env != "" {
		candidates = append([]string{".env." + env}, candidates...)
	}

	var files []string
	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// findConfigFile searches for the config file in the current directory and home directory
func findConfigFile(env string) (string, error) {
	names := []string{"uber_config.yaml"}
	if env != "" {
		names = append([]string{fmt.Sprintf("uber_config.%s.yaml", env)}, names...)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, name := range names {
		// Check current directory
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}

		// Check home directory
		homeConfigPath := filepath.Join(homeDir, name)
		if _, err := os.Stat(homeConfigPath); err == nil {
			return homeConfigPath, nil
		}
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
