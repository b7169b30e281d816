package report

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sentinel/internal/domain/features"
	"sentinel/internal/domain/profile"
	"sentinel/pkg/errors"
)

//go:embed baseline.yaml
var embeddedBaseline []byte

// BaselineMetric is one comparable feature of the typical-profile table
type BaselineMetric struct {
	Feature            string                       `yaml:"feature"`
	Label              string                       `yaml:"label"`
	SuspiciousAbovePct *float64                     `yaml:"suspicious_above_pct,omitempty"`
	SuspiciousBelowPct *float64                     `yaml:"suspicious_below_pct,omitempty"`
	Typical            map[profile.Platform]float64 `yaml:"typical"`
}

// Suspicious reports whether a signed deviation points toward fake behavior
func (m BaselineMetric) Suspicious(diffPct float64) bool {
	if m.SuspiciousAbovePct != nil && diffPct > *m.SuspiciousAbovePct {
		return true
	}
	if m.SuspiciousBelowPct != nil && diffPct < *m.SuspiciousBelowPct {
		return true
	}
	return false
}

// Baseline is the immutable typical-profile table loaded once at startup
type Baseline struct {
	Version int              `yaml:"version"`
	Metrics []BaselineMetric `yaml:"metrics"`
}

// DefaultBaseline parses the embedded table
func DefaultBaseline() (*Baseline, error) {
	return ParseBaseline(embeddedBaseline)
}

// LoadBaseline reads an override table from path, or the embedded one when path is empty
func LoadBaseline(path string) (*Baseline, error) {
	if path == "" {
		return DefaultBaseline()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read baseline file %s", path)
	}
	return ParseBaseline(data)
}

// ParseBaseline decodes and validates a YAML table
func ParseBaseline(data []byte) (*Baseline, error) {
	var b Baseline
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("failed to parse baseline: %v", err))
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate rejects unknown features, missing directions and non-positive typical values
func (b *Baseline) Validate() error {
	if len(b.Metrics) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "baseline has no metrics")
	}
	for _, m := range b.Metrics {
		if _, ok := features.Defaults[m.Feature]; !ok {
			return errors.Wrapf(errors.ErrInvalidInput, "baseline metric %q is not a schema feature", m.Feature)
		}
		if m.SuspiciousAbovePct == nil && m.SuspiciousBelowPct == nil {
			return errors.Wrapf(errors.ErrInvalidInput, "baseline metric %q has no suspicious direction", m.Feature)
		}
		for _, p := range profile.Platforms {
			if m.Typical[p] <= 0 {
				return errors.Wrapf(errors.ErrInvalidInput, "baseline metric %q needs a positive typical value for %s", m.Feature, p)
			}
		}
	}
	return nil
}
