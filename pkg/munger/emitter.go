package munger

import (
	"fmt"
	"maps"

	"go.uber.org/zap"
)

// Emitter receives every outcome of a layer with logging enabled. Emit is
// called after the field has been mutated.
type Emitter interface {
	Emit(layer *Layer, outcome Outcome, resp Response)
}

// NopEmitter discards outcomes.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(*Layer, Outcome, Response) {}

// ZapEmitter writes outcomes as structured zap records: Matched at info
// level, everything else at warn level.
type ZapEmitter struct {
	log *zap.Logger
}

// NewZapEmitter returns an emitter writing to log. A nil log uses the global
// logger at emit time.
func NewZapEmitter(log *zap.Logger) *ZapEmitter {
	return &ZapEmitter{log: log}
}

func (e *ZapEmitter) logger() *zap.Logger {
	if e == nil || e.log == nil {
		return zap.L()
	}
	return e.log
}

// Emit implements Emitter.
func (e *ZapEmitter) Emit(layer *Layer, outcome Outcome, resp Response) {
	cfg := layer.Config
	log := e.logger().With(
		zap.String("component", "munger"),
		zap.String("layer", layer.Name()),
		zap.String("outcome", outcome.Kind.String()),
	)
	// The caller owns resp and may change it after we return.
	snapshot := zap.Any("response", maps.Clone(resp))

	switch outcome.Kind {
	case Matched:
		log.Info(fmt.Sprintf("found one %q feature, munging %q", cfg.IDProperty, cfg.TargetField),
			zap.String("before", describe(cfg.TargetField, outcome.Before)),
			zap.String("after", describe(cfg.TargetField, outcome.After)),
			zap.Any("feature", featureProperties(outcome)),
			snapshot,
		)
	case Ambiguous:
		log.Warn(fmt.Sprintf("%d %q features found for %v, %q will not be changed",
			outcome.Count, cfg.IDProperty, resp["request"], cfg.TargetField),
			zap.Int("count", outcome.Count),
			zap.String("before", describe(cfg.TargetField, outcome.Before)),
			zap.String("after", describe(cfg.TargetField, outcome.After)),
			snapshot,
		)
	case NoTargetCandidate:
		log.Warn(fmt.Sprintf("matched feature has no %q property, %q will not be changed",
			cfg.IDProperty, cfg.TargetField),
			zap.String("before", describe(cfg.TargetField, outcome.Before)),
			zap.Any("feature", featureProperties(outcome)),
			snapshot,
		)
	case FieldAbsent:
		log.Warn(fmt.Sprintf("%q not found in geocoder response", cfg.TargetField),
			snapshot,
		)
	}
}

func describe(field string, v any) string {
	return fmt.Sprintf("%q = %q", field, fmt.Sprint(v))
}

func featureProperties(o Outcome) map[string]any {
	if o.Feature == nil {
		return nil
	}
	return maps.Clone(o.Feature.Properties)
}
