// Package munger enriches geocoder responses with identifiers taken from
// polygon reference layers. For each layer, the response's target field is
// overwritten only when exactly one polygon contains the geocoded point.
package munger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/geoclient-munger/internal/spatial"
)

// Containment finds the features of a set that contain a point. Results must
// be deterministic and keep set order.
type Containment interface {
	FeaturesContaining(p spatial.Point, set *spatial.FeatureSet) []*spatial.Feature
}

// OutcomeKind is the result of evaluating one layer against one response.
type OutcomeKind int

// Outcome kinds.
const (
	// FieldAbsent means the response has no target field. Nothing was queried.
	FieldAbsent OutcomeKind = iota
	// Matched means exactly one feature contained the point and the target
	// field now holds its identifier.
	Matched
	// Ambiguous means zero or several features contained the point.
	Ambiguous
	// NoTargetCandidate means one feature matched but it has no id property.
	NoTargetCandidate
)

func (k OutcomeKind) String() string {
	switch k {
	case FieldAbsent:
		return "field_absent"
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	case NoTargetCandidate:
		return "no_target_candidate"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome records what happened to one layer's target field.
type Outcome struct {
	Layer string
	Kind  OutcomeKind

	// ID is the identifier written for Matched.
	ID any
	// Count is the number of containing features for Ambiguous.
	Count int
	// Feature is the single containing feature for Matched and NoTargetCandidate.
	Feature *spatial.Feature

	Before any
	After  any
}

// Mutated reports whether the outcome overwrote the target field.
func (o Outcome) Mutated() bool {
	return o.Kind == Matched
}

// Munger applies a Registry of layers to geocoder responses. It is safe for
// concurrent use as long as each response is used by one call at a time.
type Munger struct {
	registry    *Registry
	containment Containment
	emitter     Emitter
	workingCRS  string
}

// Registry returns the loaded layers.
func (m *Munger) Registry() *Registry {
	return m.registry
}

// WorkingCRS returns the CRS that layers and query points share.
func (m *Munger) WorkingCRS() string {
	return m.workingCRS
}

// Munge enriches resp in place.
func (m *Munger) Munge(resp Response) {
	m.Apply(resp)
}

// Apply enriches resp in place and returns one outcome per layer, in
// registry order. It never fails; anomalies are reported as outcomes.
func (m *Munger) Apply(resp Response) []Outcome {
	p := Resolve(resp)

	outcomes := make([]Outcome, 0, len(m.registry.layers))
	for _, layer := range m.registry.layers {
		outcome := m.evaluate(layer, p, resp)
		if layer.logging {
			m.emit(layer, outcome, resp)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (m *Munger) evaluate(layer *Layer, p spatial.Point, resp Response) Outcome {
	cfg := layer.Config
	out := Outcome{Layer: layer.Name()}

	before, ok := resp[cfg.TargetField]
	if !ok {
		out.Kind = FieldAbsent
		return out
	}
	out.Before, out.After = before, before

	found := m.containment.FeaturesContaining(p, layer.Features)
	if len(found) != 1 {
		out.Kind = Ambiguous
		out.Count = len(found)
		return out
	}

	out.Feature = found[0]
	id, ok := found[0].Property(cfg.IDProperty)
	if !ok {
		out.Kind = NoTargetCandidate
		out.Count = 1
		return out
	}

	resp[cfg.TargetField] = id
	out.Kind = Matched
	out.Count = 1
	out.ID = id
	out.After = id
	return out
}

// emit hands the outcome to the emitter. A panicking emitter is logged and
// otherwise ignored.
func (m *Munger) emit(layer *Layer, outcome Outcome, resp Response) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("munger: emitter panicked",
				zap.String("layer", layer.Name()),
				zap.Any("panic", r),
			)
		}
	}()
	m.emitter.Emit(layer, outcome, resp)
}
