package history

import "strings"

// Class is the closed set the animation layer switches on. Classification
// of raw event type strings is deliberately open and best-effort; anything
// unrecognized lands on ClassUnknown rather than erroring.
type Class int

const (
	ClassUnknown Class = iota
	ClassConflict
	ClassDeath
	ClassMigration
	ClassGrowth
	ClassDiplomacy
)

// String names the class for logs and diagnostics.
func (c Class) String() string {
	switch c {
	case ClassConflict:
		return "conflict"
	case ClassDeath:
		return "death"
	case ClassMigration:
		return "migration"
	case ClassGrowth:
		return "growth"
	case ClassDiplomacy:
		return "diplomacy"
	default:
		return "unknown"
	}
}

// keyword groups checked in order; the first group containing a match wins.
var classKeywords = []struct {
	class    Class
	keywords []string
}{
	{ClassConflict, []string{"conflict", "raid", "war", "battle", "attack"}},
	{ClassDeath, []string{"death", "kill", "depleted", "destro", "collapse"}},
	{ClassMigration, []string{"migration", "migrate", "flee", "exodus"}},
	{ClassGrowth, []string{"birth", "discovery", "growth", "found", "spawn"}},
	{ClassDiplomacy, []string{"diplomacy", "alliance", "treaty", "peace"}},
}

// Classify maps an event type string onto the closed class set by
// case-insensitive substring matching against curated keyword groups.
func Classify(eventType string) Class {
	lowered := strings.ToLower(eventType)
	for _, group := range classKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lowered, kw) {
				return group.class
			}
		}
	}
	return ClassUnknown
}
