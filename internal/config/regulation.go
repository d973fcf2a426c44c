package config

import "github.com/seenimoa/bris/internal/calculator"

// Params converts the regulation section into calculator thresholds.
// Unset (zero) values fall back to the calculator defaults.
func (r RegulationConfig) Params() calculator.Params {
	return calculator.Params{
		LeverageMinimum:          r.LeverageMinimum,
		LCRMinimum:               r.LCRMinimum,
		NSFRMinimum:              r.NSFRMinimum,
		MRELRWARequirement:       r.MRELRWARequirement,
		MRELLEMRequirement:       r.MRELLEMRequirement,
		SubordinationRequirement: r.SubordinationRequirement,
		IRRBBOutlierThreshold:    r.IRRBBOutlierThreshold,
		STSFloor:                 r.STSFloor,
		NonSTSFloor:              r.NonSTSFloor,
		CapitalRatio:             r.CapitalRatio,
		KSAMultiplier:            r.KSAMultiplier,
		LargeExposureLimit:       r.LargeExposureLimit,
		GSIBExposureLimit:        r.GSIBExposureLimit,
	}
}
