package render

import (
	"math"

	"chronoscope/server/internal/history"
)

// EffectStyle identifies the closed-form animation applied to an event
// glyph over the course of one epoch.
type EffectStyle int

const (
	EffectPop EffectStyle = iota
	EffectPulse
	EffectFloat
	EffectDrop
)

// glyphFor maps an event class to its glyph and animation style. Unknown
// classes get a generic pop glyph, never an error.
func glyphFor(class history.Class) (string, EffectStyle) {
	switch class {
	case history.ClassConflict:
		return "⚔️", EffectPulse
	case history.ClassDeath:
		return "💀", EffectFloat
	case history.ClassMigration:
		return "🏃", EffectDrop
	case history.ClassGrowth:
		return "✨", EffectPop
	case history.ClassDiplomacy:
		return "🤝", EffectPop
	default:
		return "❇️", EffectPop
	}
}

const (
	floatRise   = 18.0 // pixels of vertical travel over one epoch
	dropHeight  = 24.0 // initial negative offset for the drop style
	floatFloor  = 0.2  // alpha never fades below this
	dropFloor   = 0.3
	pulseAmount = 0.4
)

// effectTransform evaluates one animation style at a progress in [0,1),
// returning scale, vertical offset and alpha. Every style is a pure
// function of progress so a frame can be re-rendered at any position.
func effectTransform(style EffectStyle, progress float64) (scale, dy, alpha float64) {
	switch style {
	case EffectPulse:
		return 1 + pulseAmount*math.Sin(5*math.Pi*progress), 0, 1
	case EffectFloat:
		alpha = 1 - progress
		if alpha < floatFloor {
			alpha = floatFloor
		}
		return 1, -floatRise * progress, alpha
	case EffectDrop:
		alpha = dropFloor + (1-dropFloor)*progress
		if alpha > 1 {
			alpha = 1
		}
		return 1, -dropHeight * (1 - progress), alpha
	default: // EffectPop
		scale = 2 * progress
		if scale > 1 {
			scale = 1
		}
		return scale, 0, 1
	}
}
