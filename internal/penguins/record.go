// Package penguins defines the penguin specimen record and the immutable
// dataset the dashboard is built on.
package penguins

import (
	"database/sql"
	"encoding/json"
)

// Species names used by the bundled dataset and the species control.
const (
	SpeciesAdelie    = "Adelie"
	SpeciesGentoo    = "Gentoo"
	SpeciesChinstrap = "Chinstrap"
)

// AllSpecies lists the known species in control order.
var AllSpecies = []string{SpeciesAdelie, SpeciesGentoo, SpeciesChinstrap}

// Field names as they appear in the source columns.
const (
	FieldSpecies       = "species"
	FieldIsland        = "island"
	FieldBillLength    = "bill_length_mm"
	FieldBillDepth     = "bill_depth_mm"
	FieldFlipperLength = "flipper_length_mm"
	FieldBodyMass      = "body_mass_g"
	FieldSex           = "sex"
	FieldYear          = "year"
)

// Record is one penguin observation. Measurements the source reports as
// missing stay invalid rather than zero.
type Record struct {
	Species         string
	Island          string
	BillLengthMM    sql.NullFloat64
	BillDepthMM     sql.NullFloat64
	FlipperLengthMM sql.NullFloat64
	BodyMassG       sql.NullInt64
	Sex             string
	Year            int
}

// Measurement returns the numeric value of a measurement field and whether it
// is present. Unknown field names report false.
func (r Record) Measurement(field string) (float64, bool) {
	switch field {
	case FieldBillLength:
		return r.BillLengthMM.Float64, r.BillLengthMM.Valid
	case FieldBillDepth:
		return r.BillDepthMM.Float64, r.BillDepthMM.Valid
	case FieldFlipperLength:
		return r.FlipperLengthMM.Float64, r.FlipperLengthMM.Valid
	case FieldBodyMass:
		return float64(r.BodyMassG.Int64), r.BodyMassG.Valid
	case FieldYear:
		return float64(r.Year), r.Year != 0
	default:
		return 0, false
	}
}

type recordJSON struct {
	Species         string   `json:"species"`
	Island          string   `json:"island"`
	BillLengthMM    *float64 `json:"bill_length_mm"`
	BillDepthMM     *float64 `json:"bill_depth_mm"`
	FlipperLengthMM *float64 `json:"flipper_length_mm"`
	BodyMassG       *int64   `json:"body_mass_g"`
	Sex             string   `json:"sex,omitempty"`
	Year            int      `json:"year,omitempty"`
}

// MarshalJSON encodes missing measurements as null.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{Species: r.Species, Island: r.Island, Sex: r.Sex, Year: r.Year}
	if r.BillLengthMM.Valid {
		v := r.BillLengthMM.Float64
		out.BillLengthMM = &v
	}
	if r.BillDepthMM.Valid {
		v := r.BillDepthMM.Float64
		out.BillDepthMM = &v
	}
	if r.FlipperLengthMM.Valid {
		v := r.FlipperLengthMM.Float64
		out.FlipperLengthMM = &v
	}
	if r.BodyMassG.Valid {
		v := r.BodyMassG.Int64
		out.BodyMassG = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Record{Species: in.Species, Island: in.Island, Sex: in.Sex, Year: in.Year}
	if in.BillLengthMM != nil {
		r.BillLengthMM = sql.NullFloat64{Float64: *in.BillLengthMM, Valid: true}
	}
	if in.BillDepthMM != nil {
		r.BillDepthMM = sql.NullFloat64{Float64: *in.BillDepthMM, Valid: true}
	}
	if in.FlipperLengthMM != nil {
		r.FlipperLengthMM = sql.NullFloat64{Float64: *in.FlipperLengthMM, Valid: true}
	}
	if in.BodyMassG != nil {
		r.BodyMassG = sql.NullInt64{Int64: *in.BodyMassG, Valid: true}
	}
	return nil
}
