package framework

import (
	"fmt"
	"sort"
)

// Kappa is the shear correction factor of a rectangular cross-section.
const Kappa = 5.0 / 6.0

// Category groups materials for listing.
type Category string

const (
	CategoryMetal Category = "metal"
	CategoryWood  Category = "wood"
)

// Material holds isotropic elastic properties.
type Material struct {
	Name string `json:"name"`
	// E is the Young's modulus in Pa.
	E float64 `json:"youngsModulus"`
	// Rho is the density in kg/m^3.
	Rho float64 `json:"density"`
	// Nu is the Poisson ratio.
	Nu       float64  `json:"poissonRatio"`
	Category Category `json:"category,omitempty"`
}

// ShearModulus returns G = E / (2(1+ν)).
func (m Material) ShearModulus() float64 {
	return m.E / (2 * (1 + m.Nu))
}

// Validate checks that the material can be used by the solvers.
func (m Material) Validate() error {
	if m.E <= 0 {
		return fmt.Errorf("material %q: Young's modulus must be > 0, got %g", m.Name, m.E)
	}
	if m.Rho <= 0 {
		return fmt.Errorf("material %q: density must be > 0, got %g", m.Name, m.Rho)
	}
	if m.Nu <= -1 || m.Nu >= 0.5 {
		return fmt.Errorf("material %q: Poisson ratio must be in (-1, 0.5), got %g", m.Name, m.Nu)
	}
	return nil
}

var materials = map[string]Material{
	"aluminum":        {"Aluminum 6061", 68.9e9, 2700, 0.33, CategoryMetal},
	"aluminum7075":    {"Aluminum 7075", 71.7e9, 2810, 0.33, CategoryMetal},
	"brass":           {"Brass C260", 110e9, 8530, 0.35, CategoryMetal},
	"steel":           {"Steel 1018", 205e9, 7870, 0.29, CategoryMetal},
	"stainless_steel": {"Stainless Steel 304", 193e9, 8000, 0.29, CategoryMetal},
	"bronze":          {"Phosphor Bronze", 110e9, 8800, 0.34, CategoryMetal},
	"bell_bronze":     {"Bell Bronze (B20)", 100e9, 8600, 0.34, CategoryMetal},
	"fiberglass":      {"Fiberglass Composite", 17.0e9, 1800, 0.30, CategoryMetal},

	"rosewood":         {"Honduran Rosewood", 12.5e9, 850, 0.37, CategoryWood},
	"african_rosewood": {"African Rosewood (Bubinga)", 15.8e9, 890, 0.36, CategoryWood},
	"padauk":           {"African Padauk", 11.7e9, 750, 0.35, CategoryWood},
	"sapele":           {"Sapele", 12.0e9, 640, 0.35, CategoryWood},
	"bubinga":          {"Bubinga", 15.8e9, 890, 0.36, CategoryWood},
	"maple":            {"Hard Maple", 12.6e9, 705, 0.35, CategoryWood},
	"purpleheart":      {"Purpleheart", 17.0e9, 880, 0.35, CategoryWood},
	"wenge":            {"Wenge", 14.0e9, 870, 0.35, CategoryWood},
	"bocote":           {"Bocote", 14.1e9, 930, 0.36, CategoryWood},
	"zebrawood":        {"Zebrawood", 15.2e9, 780, 0.35, CategoryWood},
	"cocobolo":         {"Cocobolo", 14.1e9, 1100, 0.36, CategoryWood},
	"ebony":            {"African Ebony", 17.4e9, 1050, 0.38, CategoryWood},
	"teak":             {"Teak", 12.3e9, 630, 0.35, CategoryWood},
}

// LookupMaterial returns the material registered under key.
func LookupMaterial(key string) (Material, error) {
	m, ok := materials[key]
	if !ok {
		return Material{}, fmt.Errorf("unknown material %q", key)
	}
	return m, nil
}

// MaterialKeys lists the registered material keys in sorted order.
func MaterialKeys() []string {
	keys := make([]string, 0, len(materials))
	for k := range materials {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
