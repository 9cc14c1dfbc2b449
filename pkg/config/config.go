package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/tanc/pkg/cli"
)

type Feature int

const (
	FeatPromotion Feature = iota
	FeatLambdas
	FeatStringDedup
	FeatImplicitVoidReturn
	FeatCount
)

type Warning int

const (
	WarnPromotion Warning = iota
	WarnUnreachableCode
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

const (
	DefaultMemorySize = 1 << 20
	DefaultStepLimit  = 50_000_000
)

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	// Machine settings for the emulator.
	MemorySize int
	StepLimit  int64
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		MemorySize: DefaultMemorySize,
		StepLimit:  DefaultStepLimit,
	}

	features := map[Feature]Info{
		FeatPromotion:          {"promotion", true, "Implicitly widen char -> int -> float where an operator needs it."},
		FeatLambdas:            {"lambdas", true, "Allow anonymous `subr` expressions."},
		FeatStringDedup:        {"string-dedup", true, "Emit identical string constants once."},
		FeatImplicitVoidReturn: {"implicit-void-return", false, "Let void subroutines return by falling off their end."},
	}

	warnings := map[Warning]Info{
		WarnPromotion:       {"promotion", false, "Warn whenever an implicit widening cast is inserted."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about code that will never be executed."},
		WarnExtra:           {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SetupFlagGroups registers -W and -F flag groups on fs. The returned
// entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled := info.Enabled
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: new(bool),
		}
	}
	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled := info.Enabled
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: new(bool),
		}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warning Flags:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature flag", "Available feature flags:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the parsed -W/-F entries into c. Explicit
// disables win over enables of the same name.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// ProcessFlags applies a whitespace-separated list such as
// "-Wall -Wno-promotion -Fno-lambdas". -Wall and -Wno-all go first so more
// specific flags can override them.
func (c *Config) ProcessFlags(flagStr string) error {
	fields := strings.Fields(flagStr)
	for _, f := range fields {
		if f == "-Wall" || f == "-Wno-all" {
			if err := c.applyFlag(f); err != nil {
				return err
			}
		}
	}
	for _, f := range fields {
		if f != "-Wall" && f != "-Wno-all" {
			if err := c.applyFlag(f); err != nil {
				return err
			}
		}
	}
	return nil
}
