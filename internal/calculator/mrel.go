package calculator

import (
	"github.com/seenimoa/bris/pkg/models"
	"github.com/seenimoa/bris/pkg/utils"
)

// MREL checks eligible own funds and liabilities against the RWA-based and
// leverage-exposure-based requirements and the subordination requirement.
// Senior preferred eligible liabilities (other_eligible) count towards MREL
// but not towards subordination.
func (c *Calculator) MREL(in models.MRELInput) (*models.MRELResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if in.TotalRWA <= 0 {
		return nil, zeroDenominator("total_rwa")
	}
	if in.LeverageExposure <= 0 {
		return nil, zeroDenominator("leverage_exposure")
	}

	reqRWA := orDefault(in.MRELRequirementRWA, c.params.MRELRWARequirement)
	reqLEM := orDefault(in.MRELRequirementLEM, c.params.MRELLEMRequirement)
	reqSub := orDefault(in.SubordinationRequirement, c.params.SubordinationRequirement)

	subordinated := in.CET1 + in.AT1 + in.Tier2 + in.SeniorNonPreferred
	total := subordinated + in.OtherEligible

	ratioRWA := total / in.TotalRWA
	ratioLEM := total / in.LeverageExposure
	ratioSub := subordinated / in.TotalRWA

	res := &models.MRELResult{
		TotalMREL:                 total,
		SubordinatedAmount:        subordinated,
		MRELRatioRWA:              ratioRWA,
		MRELRatioRWAPercent:       utils.FormatPercent(ratioRWA),
		MRELRatioLEM:              ratioLEM,
		MRELRatioLEMPercent:       utils.FormatPercent(ratioLEM),
		SubordinationRatio:        ratioSub,
		SubordinationRatioPercent: utils.FormatPercent(ratioSub),
		RequirementRWA:            reqRWA,
		RequirementLEM:            reqLEM,
		RequirementSubordination:  reqSub,
		CompliantRWA:              ratioRWA >= reqRWA,
		CompliantLEM:              ratioLEM >= reqLEM,
		CompliantSubordination:    ratioSub >= reqSub,
		BufferRWA:                 ratioRWA - reqRWA,
		BufferLEM:                 ratioLEM - reqLEM,
		BufferSubordination:       ratioSub - reqSub,
		Breakdown: map[string]float64{
			"cet1":                 in.CET1,
			"at1":                  in.AT1,
			"tier2":                in.Tier2,
			"senior_non_preferred": in.SeniorNonPreferred,
			"other_eligible":       in.OtherEligible,
		},
	}
	res.OverallCompliant = res.CompliantRWA && res.CompliantLEM && res.CompliantSubordination
	return res, nil
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
