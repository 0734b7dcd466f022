package collector

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidThreshold is returned by Validate for a malformed limit.
var ErrInvalidThreshold = errors.New("invalid threshold")

// Thresholds defines pass/fail criteria for a run. Limits are absolute
// percentages such as "2%"; an empty limit is not checked.
type Thresholds struct {
	SoldError   string `yaml:"sold_error"`
	ProfitError string `yaml:"profit_error"`
}

// ThresholdResult represents the outcome of a single threshold check.
type ThresholdResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// ThresholdResults contains all threshold check results.
type ThresholdResults struct {
	Passed  bool              `json:"passed"`
	Results []ThresholdResult `json:"results"`
}

// Validate checks that every configured limit parses.
func (t *Thresholds) Validate() error {
	if t == nil {
		return nil
	}
	limits := []struct{ name, value string }{
		{"sold_error", t.SoldError},
		{"profit_error", t.ProfitError},
	}
	for _, l := range limits {
		if l.value == "" {
			continue
		}
		if _, err := parsePercentage(l.value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidThreshold, l.name, err)
		}
	}
	return nil
}

// Check evaluates all thresholds against a summary.
func (t *Thresholds) Check(s *Summary) *ThresholdResults {
	if t == nil {
		return &ThresholdResults{Passed: true, Results: nil}
	}

	results := &ThresholdResults{
		Passed:  true,
		Results: make([]ThresholdResult, 0),
	}
	results.checkError("sold_error", t.SoldError, s.SoldError, s.Sold == 0)
	results.checkError("profit_error", t.ProfitError, s.ProfitError, s.Profit == 0)
	return results
}

// checkError compares |actual| with the limit. A NaN error means the
// expectation was zero, which passes only when the run produced nothing
// either.
func (r *ThresholdResults) checkError(name, limit string, actual float64, zero bool) {
	if limit == "" {
		return
	}
	threshold, err := parsePercentage(limit)
	if err != nil {
		return
	}

	var passed bool
	if math.IsNaN(actual) {
		passed = zero
	} else {
		passed = math.Abs(actual) < threshold
	}
	if !passed {
		r.Passed = false
	}

	r.Results = append(r.Results, ThresholdResult{
		Name:      name,
		Passed:    passed,
		Threshold: limit,
		Actual:    FormatPercent(actual),
	})
}

func parsePercentage(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("invalid percentage format: %s", s)
	}
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("percentage out of range: %s%%", s)
	}
	return v, nil
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// Violations returns only the failed threshold results.
func (r *ThresholdResults) Violations() []ThresholdResult {
	violations := make([]ThresholdResult, 0)
	for _, result := range r.Results {
		if !result.Passed {
			violations = append(violations, result)
		}
	}
	return violations
}
