package models

import "fmt"

// -----------------------------------------------------------------------------
// Indicator output bundle (one cache value for the indicator tier)
// -----------------------------------------------------------------------------

// MIndicatorOutput holds one computed indicator result. Every series in Data
// has exactly DataPoints values, and DataPoints == len(Timestamps). Values are
// nullable because most indicators have a warm-up window with no output.
type MIndicatorOutput struct {
	Timestamps []int64               `json:"timestamps"` // epoch seconds
	Data       map[string][]*float64 `json:"data"`
	DataPoints int                   `json:"data_points"`
	Metadata   map[string]string     `json:"metadata,omitempty"`
}

// -----------------------------------------------------------------------------

// Validate checks the length invariant across timestamps and all series.
func (o *MIndicatorOutput) Validate() error {
	if o.DataPoints != len(o.Timestamps) {
		return fmt.Errorf("data_points %d does not match %d timestamps", o.DataPoints, len(o.Timestamps))
	}
	for name, series := range o.Data {
		if len(series) != o.DataPoints {
			return fmt.Errorf("series '%s' has %d values, expected %d", name, len(series), o.DataPoints)
		}
	}
	return nil
}
