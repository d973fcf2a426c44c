package calculator

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/seenimoa/bris/pkg/models"
	"github.com/seenimoa/bris/pkg/utils"
)

// Standardised Approach risk weights by exposure class.
var saRiskWeights = map[string]float64{
	"sovereign":     0.0,
	"institution":   0.20,
	"corporate":     1.0,
	"retail":        0.75,
	"mortgage":      0.35,
	"sme_corporate": 0.85,
	"equity":        1.0,
	"other":         1.0,
}

// RWA computes the risk-weighted amount of one credit exposure under the
// Standardised Approach (class table or override) or the IRB formula.
func (c *Calculator) RWA(in models.RWAInput) (*models.RWAResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	class := strings.ToLower(in.ExposureClass)
	approach := in.Approach
	if approach == "" {
		approach = "SA"
	}

	var (
		rw    float64
		steps []string
	)
	switch {
	case in.RiskWeightOverride != nil:
		rw = *in.RiskWeightOverride
		steps = append(steps,
			fmt.Sprintf("Exposure class: %s", in.ExposureClass),
			fmt.Sprintf("Risk weight override: %s", utils.FormatPercent(rw)))
	case approach == "IRB":
		if in.PD <= 0 || in.LGD <= 0 || in.Maturity <= 0 {
			return nil, rangeErr("pd", "IRB approach requires pd, lgd and maturity greater than zero")
		}
		if in.PD >= 1 {
			return nil, rangeErr("pd", "must be < 1 (defaulted exposures are outside the IRB formula)")
		}
		rw = irbRiskWeight(in.PD, in.LGD, in.Maturity, class)
		steps = append(steps,
			fmt.Sprintf("Exposure class: %s", in.ExposureClass),
			fmt.Sprintf("IRB parameters: PD = %s, LGD = %s, M = %.2f",
				utils.FormatPercent(in.PD), utils.FormatPercent(in.LGD), in.Maturity),
			fmt.Sprintf("IRB risk weight: %s", utils.FormatPercent(rw)))
	default:
		w, ok := saRiskWeights[class]
		if !ok {
			w = saRiskWeights["other"]
		}
		rw = w
		steps = append(steps,
			fmt.Sprintf("Exposure class: %s", in.ExposureClass),
			fmt.Sprintf("SA risk weight: %s", utils.FormatPercent(rw)))
	}

	rwa := in.ExposureAmount * rw
	steps = append(steps, fmt.Sprintf("RWA = %.2f × %s = %.2f", in.ExposureAmount, utils.FormatPercent(rw), rwa))

	return &models.RWAResult{
		ExposureClass:      in.ExposureClass,
		Approach:           approach,
		RiskWeight:         rw,
		RiskWeightPercent:  utils.FormatPercent(rw),
		RWA:                rwa,
		CapitalRequirement: rwa * c.params.CapitalRatio,
		CalculationSteps:   steps,
	}, nil
}

// irbRiskWeight is the Basel IRB risk-weight function, bounded to [0, 1250%].
func irbRiskWeight(pd, lgd, maturity float64, class string) float64 {
	pd = math.Max(pd, irbPDFloor)
	n := distuv.UnitNormal

	r := irbCorrelation(pd, class)
	z := math.Sqrt(1/(1-r))*n.Quantile(pd) + math.Sqrt(r/(1-r))*n.Quantile(irbConfidence)
	k := lgd*n.CDF(z) - pd*lgd

	// Maturity adjustment does not apply to retail classes.
	if class != "retail" && class != "mortgage" {
		b := math.Pow(0.11852-0.05478*math.Log(pd), 2)
		k *= (1 + (maturity-2.5)*b) / (1 - 1.5*b)
	}
	return clamp(k*maxRiskWeight, 0, maxRiskWeight)
}

func irbCorrelation(pd float64, class string) float64 {
	switch class {
	case "mortgage":
		return irbMortgageR
	case "retail":
		f := (1 - math.Exp(-35*pd)) / (1 - math.Exp(-35))
		return 0.03*f + 0.16*(1-f)
	default:
		f := (1 - math.Exp(-50*pd)) / (1 - math.Exp(-50))
		return 0.12*f + 0.24*(1-f)
	}
}
