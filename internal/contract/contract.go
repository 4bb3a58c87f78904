// Package contract reflects the wire types into JSON Schemas so clients
// can validate frames, scenes and diagnostics payloads.
package contract

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"

	server "chronoscope/server"
	"chronoscope/server/internal/graphview"
	"chronoscope/server/internal/playback"
	"chronoscope/server/internal/render"
	"chronoscope/server/internal/world"
)

// Schemas reflects every public wire type, keyed by schema name.
func Schemas() map[string]*jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: false,
	}
	return map[string]*jsonschema.Schema{
		"frame":       reflector.Reflect(&render.Frame{}),
		"legend":      reflector.Reflect(&render.LegendEntry{}),
		"scene":       reflector.Reflect(&graphview.Scene{}),
		"position":    reflector.Reflect(&playback.Position{}),
		"diagnostics": reflector.Reflect(&server.DiagnosticsSnapshot{}),
		"snapshot":    reflector.Reflect(&world.Snapshot{}),
	}
}

// Names lists the schema keys in stable order.
func Names() []string {
	schemas := Schemas()
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode renders one named schema as indented JSON.
func Encode(name string) ([]byte, error) {
	schema, ok := Schemas()[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return json.MarshalIndent(schema, "", "  ")
}
