package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

// RulesResolver reads business rules from the settings store on every decision,
// so operators can change prices and refund windows without a restart.
type RulesResolver struct {
	store  ports.SettingsStore
	logger *slog.Logger
}

func NewRulesResolver(store ports.SettingsStore, logger *slog.Logger) *RulesResolver {
	return &RulesResolver{store: store, logger: logger}
}

// Resolve never fails: a missing or malformed setting falls back to its default.
func (r *RulesResolver) Resolve(ctx context.Context) domain.Rules {
	rules := domain.DefaultRules()

	settings, err := r.store.LoadSettings(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to load settings, using default rules", "error", err)
		return rules
	}

	rules.HourlyRate = r.number(ctx, settings, domain.SettingHourlyRate, rules.HourlyRate)
	rules.FullRefundWindow = r.hours(ctx, settings, domain.SettingFullRefundHours, rules.FullRefundWindow)
	rules.PartialRefundWindow = r.hours(ctx, settings, domain.SettingPartialRefundHours, rules.PartialRefundWindow)
	rules.PartialRefundPct = r.number(ctx, settings, domain.SettingPartialRefundPct, rules.PartialRefundPct)

	multipliers := map[domain.SpotType]string{
		domain.SpotStandard: domain.SettingMultiplierStandard,
		domain.SpotEV:       domain.SettingMultiplierEV,
		domain.SpotVIP:      domain.SettingMultiplierVIP,
	}
	for spotType, key := range multipliers {
		rules.Multipliers[spotType] = r.number(ctx, settings, key, rules.Multiplier(spotType))
	}

	return rules
}

func (r *RulesResolver) number(ctx context.Context, settings map[string]string, key string, fallback float64) float64 {
	raw, ok := settings[key]
	if !ok {
		r.logger.DebugContext(ctx, "setting missing, using default", "key", key, "default", fallback)
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		r.logger.DebugContext(ctx, "setting unparsable, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func (r *RulesResolver) hours(ctx context.Context, settings map[string]string, key string, fallback time.Duration) time.Duration {
	h := r.number(ctx, settings, key, fallback.Hours())
	return time.Duration(h * float64(time.Hour))
}
