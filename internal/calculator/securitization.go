package calculator

import (
	"fmt"
	"math"

	"github.com/seenimoa/bris/pkg/models"
	"github.com/seenimoa/bris/pkg/utils"
)

// pCoefficients is one row of the SEC-IRBA supervisory p table:
// p = max(0.3, A + B/N + C·KIRB + D·LGD + E·MT).
type pCoefficients struct {
	A, B, C, D, E float64
}

var (
	wholesaleSeniorGranular       = pCoefficients{0, 3.56, -1.85, 0.55, 0.07}
	wholesaleSeniorNonGranular    = pCoefficients{0.11, 2.61, -2.91, 0.68, 0.07}
	wholesaleNonSeniorGranular    = pCoefficients{0.16, 2.87, -1.03, 0.21, 0.07}
	wholesaleNonSeniorNonGranular = pCoefficients{0.22, 2.35, -2.46, 0.48, 0.07}
	retailSenior                  = pCoefficients{0, 0, -7.48, 0.71, 0.24}
	retailNonSenior               = pCoefficients{0, 0, -5.78, 0.55, -0.27}
)

// granularityThreshold is the effective number of exposures at which a
// wholesale pool counts as granular.
const granularityThreshold = 25

// Securitization computes the risk weight of one tranche under the requested
// approach (SEC-IRBA when none is given).
func (c *Calculator) Securitization(in models.SecuritizationInput) (*models.SecuritizationResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	approach := in.Approach
	if approach == "" {
		approach = models.ApproachSECIRBA
	}
	return c.securitization(in, approach), nil
}

// CompareSecuritization runs SEC-IRBA and SEC-SA on identical tranche and pool
// parameters and reports which approach gives the lower risk weight.
// Any approach set on the input is ignored.
func (c *Calculator) CompareSecuritization(in models.SecuritizationInput) (*models.SecuritizationComparison, error) {
	in.Approach = ""
	if err := Validate(in); err != nil {
		return nil, err
	}

	irba := c.securitization(in, models.ApproachSECIRBA)
	sa := c.securitization(in, models.ApproachSECSA)

	cmp := &models.SecuritizationComparison{
		SecIRBA:      irba,
		SecSA:        sa,
		RWDifference: math.Abs(irba.RiskWeight - sa.RiskWeight),
	}

	switch {
	case sa.RiskWeight < irba.RiskWeight:
		cmp.OptimalApproach = models.ApproachSECSA
		cmp.Recommendation = fmt.Sprintf("SEC-SA gives a risk weight %s lower than SEC-IRBA (%s vs %s).",
			utils.FormatPercent(cmp.RWDifference), sa.RiskWeightPercent, irba.RiskWeightPercent)
	case irba.RiskWeight < sa.RiskWeight:
		cmp.OptimalApproach = models.ApproachSECIRBA
		cmp.Recommendation = fmt.Sprintf("SEC-IRBA gives a risk weight %s lower than SEC-SA (%s vs %s).",
			utils.FormatPercent(cmp.RWDifference), irba.RiskWeightPercent, sa.RiskWeightPercent)
	default:
		cmp.OptimalApproach = models.ApproachSECIRBA
		cmp.Recommendation = fmt.Sprintf("Both approaches are equivalent at %s; SEC-IRBA is retained.",
			irba.RiskWeightPercent)
	}

	if irba.RWA != nil && sa.RWA != nil {
		savings := utils.Round(math.Abs(*irba.RWA-*sa.RWA)*c.params.CapitalRatio, 2)
		cmp.CapitalSavings = &savings
	}
	return cmp, nil
}

// securitization assumes a validated input.
func (c *Calculator) securitization(in models.SecuritizationInput, approach models.SecuritizationApproach) *models.SecuritizationResult {
	in.Approach = approach
	res := &models.SecuritizationResult{
		Approach: approach,
		Inputs:   in,
	}
	steps := []string{
		fmt.Sprintf("Approach: %s", approach),
		fmt.Sprintf("Tranche: attachment A = %s, detachment D = %s, thickness = %s",
			utils.FormatPercent(in.Attachment), utils.FormatPercent(in.Detachment),
			utils.FormatPercent(in.Detachment-in.Attachment)),
	}

	var p, k float64
	switch approach {
	case models.ApproachSECSA:
		var ksa float64
		if in.KSA != nil {
			ksa = *in.KSA
			steps = append(steps, fmt.Sprintf("K_SA = %.4f", ksa))
		} else {
			ksa = math.Min(in.KIRB*c.params.KSAMultiplier, 1)
			steps = append(steps, fmt.Sprintf("K_SA = K_IRB × %.2f = %.4f", c.params.KSAMultiplier, ksa))
		}
		w := in.DelinquencyRatio
		k = (1-w)*ksa + secSADelinquentK*w
		p = secSAParameter
		steps = append(steps,
			fmt.Sprintf("K_A = (1 − W)·K_SA + 0.5·W = (1 − %.4f)·%.4f + 0.5·%.4f = %.4f", w, ksa, w, k),
			fmt.Sprintf("p = %.1f (supervisory)", p),
		)
	default:
		var coef pCoefficients
		p, coef = c.irbaP(in)
		k = in.KIRB
		steps = append(steps,
			fmt.Sprintf("K_IRB = %.4f, LGD = %.4f, MT = %.2f", in.KIRB, in.LGD, clamp(in.Maturity, 1, 5)),
			fmt.Sprintf("p = max(0.3, %.2f + %.2f/N + (%.2f)·K_IRB + %.2f·LGD + (%.2f)·MT) = %.4f",
				coef.A, coef.B, coef.C, coef.D, coef.E, p),
		)
	}
	res.PParameter = p
	res.KParameter = k

	var rw float64
	if in.Attachment == 0 && in.Detachment == 1 {
		rw = maxRiskWeight * k
		steps = append(steps, fmt.Sprintf("Tranche covers the whole pool: RW = 12.5 × K = %s", utils.FormatPercent(rw)))
	} else {
		rw = ssfaRiskWeight(k, p, in.Attachment, in.Detachment)
		steps = append(steps, fmt.Sprintf("SSFA risk weight = %s", utils.FormatPercent(rw)))
	}

	floor := c.params.NonSTSFloor
	if in.IsSTS {
		floor = c.params.STSFloor
	}
	if rw < floor {
		steps = append(steps, fmt.Sprintf("Floor applied (%s): %s → %s",
			stsLabel(in.IsSTS), utils.FormatPercent(rw), utils.FormatPercent(floor)))
		rw = floor
	}
	if rw > maxRiskWeight {
		rw = maxRiskWeight
	}
	res.RiskWeight = rw
	res.RiskWeightPercent = utils.FormatPercent(rw)
	steps = append(steps, fmt.Sprintf("Final risk weight = %s", res.RiskWeightPercent))

	// Amounts are rounded to the cent; ratios keep full precision.
	res.TrancheNotional = utils.Round(in.PoolSize*(in.Detachment-in.Attachment), 2)
	if in.PoolSize > 0 {
		rwa := utils.Round(rw*res.TrancheNotional, 2)
		capital := utils.Round(rwa*c.params.CapitalRatio, 2)
		res.RWA = &rwa
		res.CapitalRequirement = &capital
		steps = append(steps,
			fmt.Sprintf("Tranche notional = %.2f × %.4f = %.2f", in.PoolSize, in.Detachment-in.Attachment, res.TrancheNotional),
			fmt.Sprintf("RWA = %.2f × %s = %.2f", res.TrancheNotional, res.RiskWeightPercent, rwa),
			fmt.Sprintf("Capital requirement = RWA × %s = %.2f", utils.FormatPercent(c.params.CapitalRatio), capital),
		)
	}

	res.CalculationSteps = steps
	return res
}

// irbaP returns the SEC-IRBA p-parameter, bounded to [0.3, 1].
func (c *Calculator) irbaP(in models.SecuritizationInput) (float64, pCoefficients) {
	coef := irbaCoefficients(in.PoolType, in.NonSenior, in.EffectiveNumber)
	mt := clamp(in.Maturity, 1, 5)

	p := coef.A + coef.C*in.KIRB + coef.D*in.LGD + coef.E*mt
	if in.EffectiveNumber > 0 {
		p += coef.B / in.EffectiveNumber
	}
	return clamp(p, secIRBAMinP, 1), coef
}

func irbaCoefficients(pool models.PoolType, nonSenior bool, n float64) pCoefficients {
	if pool == models.PoolRetail {
		if nonSenior {
			return retailNonSenior
		}
		return retailSenior
	}

	granular := n == 0 || n >= granularityThreshold
	switch {
	case !nonSenior && granular:
		return wholesaleSeniorGranular
	case !nonSenior:
		return wholesaleSeniorNonGranular
	case granular:
		return wholesaleNonSeniorGranular
	default:
		return wholesaleNonSeniorNonGranular
	}
}

// ssfaRiskWeight applies the simplified supervisory formula to a tranche
// [a, d) of a pool with capital charge k and supervisory parameter p.
func ssfaRiskWeight(k, p, a, d float64) float64 {
	switch {
	case d <= k:
		return maxRiskWeight
	case a >= k:
		return maxRiskWeight * kSSFA(k, p, a, d)
	default:
		// Part below K is deducted at 1250%, the rest uses the curve from K to D.
		return maxRiskWeight*(k-a)/(d-a) + maxRiskWeight*kSSFA(k, p, k, d)*(d-k)/(d-a)
	}
}

func kSSFA(k, p, a, d float64) float64 {
	if k <= 0 {
		return 0
	}
	alpha := -1 / (p * k)
	if math.IsInf(alpha, 0) {
		return 0
	}
	u := d - k
	l := math.Max(a-k, 0)
	return (math.Exp(alpha*u) - math.Exp(alpha*l)) / (alpha * (u - l))
}

func stsLabel(sts bool) string {
	if sts {
		return "STS"
	}
	return "non-STS"
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}
