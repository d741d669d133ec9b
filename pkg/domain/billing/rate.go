package billing

import "fmt"

// Rate is a named hourly labor rate. Resources without their own hourly
// rate are costed at the rate they reference, or at the default rate.
type Rate struct {
	ID         string  `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	HourlyRate float64 `yaml:"hourly_rate" json:"hourly_rate"`
	IsDefault  bool    `yaml:"default" json:"default"`
}

// NewRate returns a validated Rate.
func NewRate(id, name string, hourly float64, isDefault bool) (Rate, error) {
	r := Rate{ID: id, Name: name, HourlyRate: hourly, IsDefault: isDefault}
	if err := r.Validate(); err != nil {
		return Rate{}, err
	}
	return r, nil
}

func (r Rate) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidRate)
	case r.Name == "":
		return fmt.Errorf("%w: %s has no name", ErrInvalidRate, r.ID)
	case r.HourlyRate < 0:
		return fmt.Errorf("%w: %s has a negative hourly rate", ErrInvalidRate, r.ID)
	}
	return nil
}

// TaxConfig is the tax shown on top of budgets in cost reports.
type TaxConfig struct {
	Name    string  `yaml:"name" json:"name"`
	Percent float64 `yaml:"percent" json:"percent"`
	// Included means the rates already contain the tax.
	Included bool `yaml:"included" json:"included"`
}

// Charge returns the tax owed on amount. A nil config, a zero percent or
// tax-inclusive rates owe nothing.
func (t *TaxConfig) Charge(amount float64) float64 {
	if t == nil || t.Included || t.Percent <= 0 {
		return 0
	}
	return amount * t.Percent / 100
}

func (t *TaxConfig) Validate() error {
	if t != nil && t.Percent < 0 {
		return fmt.Errorf("%w: tax percent %.2f is negative", ErrInvalidRate, t.Percent)
	}
	return nil
}

// RateConfig is the project's billing configuration. At most one rate is
// the default.
type RateConfig struct {
	Currency string     `yaml:"currency" json:"currency"`
	Tax      *TaxConfig `yaml:"tax,omitempty" json:"tax,omitempty"`
	Rates    []Rate     `yaml:"rates" json:"rates"`
}

func (rc *RateConfig) index(id string) int {
	for i := range rc.Rates {
		if rc.Rates[i].ID == id {
			return i
		}
	}
	return -1
}

// Find looks a rate up by ID.
func (rc *RateConfig) Find(id string) (Rate, bool) {
	if i := rc.index(id); i >= 0 {
		return rc.Rates[i], true
	}
	return Rate{}, false
}

// Default returns the rate marked default, else the first rate.
func (rc *RateConfig) Default() (Rate, bool) {
	for _, r := range rc.Rates {
		if r.IsDefault {
			return r, true
		}
	}
	if len(rc.Rates) == 0 {
		return Rate{}, false
	}
	return rc.Rates[0], true
}

// Resolve picks the hourly rate for a resource: its explicit rate, then
// the rate it references, then the default. Unknown references fall back
// to the default; with nothing configured the rate is zero.
func (rc *RateConfig) Resolve(explicit float64, rateID string) float64 {
	if explicit > 0 || rc == nil {
		return explicit
	}
	if r, ok := rc.Find(rateID); ok && rateID != "" {
		return r.HourlyRate
	}
	if r, ok := rc.Default(); ok {
		return r.HourlyRate
	}
	return 0
}

// Add validates and appends a rate. A new default replaces the old one.
func (rc *RateConfig) Add(rate Rate) error {
	if err := rate.Validate(); err != nil {
		return err
	}
	if rc.index(rate.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrRateExists, rate.ID)
	}
	rc.Rates = append(rc.Rates, rate)
	if rate.IsDefault {
		return rc.MakeDefault(rate.ID)
	}
	return nil
}

// MakeDefault marks id as the only default rate.
func (rc *RateConfig) MakeDefault(id string) error {
	if rc.index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrRateNotFound, id)
	}
	for i := range rc.Rates {
		rc.Rates[i].IsDefault = rc.Rates[i].ID == id
	}
	return nil
}

func (rc *RateConfig) Validate() error {
	defaults := 0
	for i, r := range rc.Rates {
		if err := r.Validate(); err != nil {
			return err
		}
		if rc.index(r.ID) != i {
			return fmt.Errorf("%w: %s", ErrRateExists, r.ID)
		}
		if r.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%w: %d rates are marked default", ErrInvalidRate, defaults)
	}
	return rc.Tax.Validate()
}
