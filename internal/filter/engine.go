// Package filter computes the filtered view of the penguin dataset. It is a
// pure function of its inputs and performs no I/O.
package filter

import "penguindash/internal/penguins"

// View is an ordered subset of a Dataset, stored as ascending indices into it.
type View struct {
	dataset *penguins.Dataset
	indices []int
}

// Compute returns every record, in dataset order, whose species is in species
// and whose body mass is strictly below massThreshold. Records missing either
// value never match. A NaN threshold matches nothing.
func Compute(ds *penguins.Dataset, species SpeciesSet, massThreshold float64) View {
	indices := make([]int, 0)
	if ds == nil {
		return View{indices: indices}
	}
	for i := 0; i < ds.Len(); i++ {
		rec := ds.At(i)
		if rec.Species == "" || !rec.BodyMassG.Valid {
			continue
		}
		if !species.Contains(rec.Species) {
			continue
		}
		if float64(rec.BodyMassG.Int64) < massThreshold {
			indices = append(indices, i)
		}
	}
	return View{dataset: ds, indices: indices}
}

// Apply is Compute driven by a Selection.
func Apply(ds *penguins.Dataset, sel Selection) View {
	return Compute(ds, sel.SpeciesSet(), sel.MassThreshold)
}

// Len returns the number of records in the view.
func (v View) Len() int { return len(v.indices) }

// At returns the i-th record of the view.
func (v View) At(i int) penguins.Record { return v.dataset.At(v.indices[i]) }

// Index returns the dataset position of the i-th record of the view.
func (v View) Index(i int) int { return v.indices[i] }

// Indices returns a copy of the dataset positions in the view.
func (v View) Indices() []int {
	out := make([]int, len(v.indices))
	copy(out, v.indices)
	return out
}

// Records materializes the view.
func (v View) Records() []penguins.Record {
	out := make([]penguins.Record, len(v.indices))
	for i, idx := range v.indices {
		out[i] = v.dataset.At(idx)
	}
	return out
}

// Dataset returns the parent dataset.
func (v View) Dataset() *penguins.Dataset { return v.dataset }
