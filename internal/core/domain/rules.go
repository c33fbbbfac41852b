package domain

import "time"

// Setting keys stored in system_config.
const (
	SettingHourlyRate         = "hourly_rate"
	SettingFullRefundHours    = "cancellation_rule_1_hours"
	SettingPartialRefundHours = "cancellation_rule_2_hours"
	SettingPartialRefundPct   = "cancellation_rule_2_percent"
	SettingMultiplierStandard = "multiplier_standard"
	SettingMultiplierEV       = "multiplier_ev"
	SettingMultiplierVIP      = "multiplier_vip"
)

// Rules is a snapshot of the business settings used by one pricing or refund decision.
type Rules struct {
	HourlyRate          float64
	FullRefundWindow    time.Duration
	PartialRefundWindow time.Duration
	PartialRefundPct    float64
	Multipliers         map[SpotType]float64
}

// DefaultRules are used for any setting absent from the store.
func DefaultRules() Rules {
	return Rules{
		HourlyRate:          10.0,
		FullRefundWindow:    24 * time.Hour,
		PartialRefundWindow: 2 * time.Hour,
		PartialRefundPct:    50,
		Multipliers: map[SpotType]float64{
			SpotStandard: 1.0,
			SpotEV:       1.5,
			SpotVIP:      2.0,
		},
	}
}

// Multiplier returns the price factor for a spot type; unknown types price as standard.
func (r Rules) Multiplier(t SpotType) float64 {
	if m, ok := r.Multipliers[t]; ok {
		return m
	}
	return 1.0
}
