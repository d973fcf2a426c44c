package calculator

import (
	"github.com/seenimoa/bris/pkg/models"
	"github.com/seenimoa/bris/pkg/utils"
)

// Leverage computes Tier 1 capital over the total exposure measure.
// Off-balance items enter at ccf_off_balance of their nominal.
func (c *Calculator) Leverage(in models.LeverageInput) (*models.LeverageResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	offBalance := in.OffBalanceItems * in.CCFOffBalance
	total := in.OnBalanceExposures + in.DerivativeExposures + in.SFTExposures + offBalance
	if total <= 0 {
		return nil, zeroDenominator("total_exposure_measure")
	}

	ratio := in.Tier1Capital / total
	return &models.LeverageResult{
		LeverageRatio:        ratio,
		LeverageRatioPercent: utils.FormatPercent(ratio),
		TotalExposureMeasure: total,
		Minimum:              c.params.LeverageMinimum,
		Compliant:            ratio >= c.params.LeverageMinimum,
		BufferToMinimum:      ratio - c.params.LeverageMinimum,
		Breakdown: map[string]float64{
			"on_balance":           in.OnBalanceExposures,
			"derivatives":          in.DerivativeExposures,
			"sft":                  in.SFTExposures,
			"off_balance_weighted": offBalance,
		},
	}, nil
}
