package sim

import "math"

// BoltzmannKJPerMolK is the molar gas constant in kJ/(mol·K). With it as
// the Boltzmann factor, temperatures are in Kelvin and interaction
// energies in kJ/mol.
const BoltzmannKJPerMolK = 8.314e-3

// AcceptanceProbability returns min(1, exp(-deltaE/kT)) with every
// degenerate input saturated to 0 or 1 instead of NaN or Inf:
//   - deltaE <= 0 (including -Inf) is always accepted
//   - kT <= 0 is the zero-temperature limit and rejects any deltaE > 0
//   - NaN in either argument rejects
func AcceptanceProbability(deltaE, kT float64) float64 {
	if math.IsNaN(deltaE) || math.IsNaN(kT) {
		return 0
	}
	if deltaE <= 0 {
		return 1
	}
	if kT <= 0 {
		return 0
	}
	x := -deltaE / kT
	if math.IsNaN(x) {
		return 0
	}
	p := math.Exp(x) // x < 0, so p in [0, 1]; underflow gives 0
	if p > 1 {
		return 1
	}
	return p
}

// Metropolis applies the acceptance test to a pre-drawn uniform u in [0,1).
func Metropolis(deltaE, kT, u float64) bool {
	if deltaE <= 0 {
		return true
	}
	return u < AcceptanceProbability(deltaE, kT)
}
