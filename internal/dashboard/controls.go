// Package dashboard ties the filter engine, summaries, plot and grid into
// per-session reactive state.
package dashboard

import (
	"encoding/json"
	"net/url"

	"penguindash/internal/filter"
	"penguindash/internal/penguins"
	"penguindash/pkg/datasetapi"
)

// Control parameter names, shared by the form, the query string and JSON bodies.
const (
	ParamMass    = "mass"
	ParamSpecies = "species"
)

// Controls returns the sidebar input definitions.
func Controls() []datasetapi.Parameter {
	species, _ := json.Marshal(penguins.AllSpecies)
	return []datasetapi.Parameter{
		{
			Name:        ParamMass,
			Label:       "Mass",
			Type:        datasetapi.TypeInteger,
			Description: "Show penguins lighter than this body mass.",
			Unit:        "g",
			Min:         datasetapi.Float(filter.MinMassThreshold),
			Max:         datasetapi.Float(filter.MaxMassThreshold),
			Example:     json.RawMessage(`4000`),
			Default:     json.RawMessage(`6000`),
		},
		{
			Name:        ParamSpecies,
			Label:       "Species",
			Type:        datasetapi.TypeStringList,
			Description: "Species to include.",
			Enum:        append([]string(nil), penguins.AllSpecies...),
			Example:     json.RawMessage(`["Adelie"]`),
			Default:     species,
		},
	}
}

// ParseSelection validates control values and builds the canonical
// selection. Omitted controls take their defaults.
func ParseSelection(supplied map[string]any) (filter.Selection, []datasetapi.ParameterError) {
	cleaned, errs := datasetapi.ValidateParameters(Controls(), supplied)
	if len(errs) > 0 {
		return filter.Selection{}, errs
	}
	sel := filter.DefaultSelection()
	if v, ok := cleaned[ParamMass].(int); ok {
		sel.MassThreshold = float64(v)
	}
	if v, ok := cleaned[ParamSpecies].([]string); ok {
		sel = filter.NewSelection(v, sel.MassThreshold)
	}
	return sel, nil
}

// ParseValues reads the control parameters out of form or query values and
// ignores every other key.
func ParseValues(values url.Values) (filter.Selection, []datasetapi.ParameterError) {
	supplied := make(map[string]any, 2)
	for _, name := range []string{ParamMass, ParamSpecies} {
		if v, ok := values[name]; ok {
			supplied[name] = v
		}
	}
	return ParseSelection(supplied)
}
