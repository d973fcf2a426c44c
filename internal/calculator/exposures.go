package calculator

import (
	"math"
	"strings"

	"github.com/seenimoa/bris/pkg/models"
	"github.com/seenimoa/bris/pkg/utils"
)

// CVA risk weights by counterparty rating (basic approach).
var cvaRiskWeights = map[string]float64{
	"AAA": 0.007,
	"AA":  0.008,
	"A":   0.010,
	"BBB": 0.020,
	"BB":  0.030,
	"B":   0.050,
	"CCC": 0.100,
}

// CVA computes the credit valuation adjustment capital charge. Per-counterparty
// charges are aggregated with a single systematic correlation factor.
func (c *Calculator) CVA(in models.CVAInput) (*models.CVAResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	res := &models.CVAResult{
		ByCounterparty: make([]models.CounterpartyCVA, 0, len(in.Counterparties)),
	}
	var sumNet, sumSquares float64
	for _, cp := range in.Counterparties {
		rw, ok := cvaRiskWeights[strings.ToUpper(cp.Rating)]
		if !ok {
			rw = cvaDefaultRWeight
		}
		gross := cvaMultiplier * rw * math.Max(1, cp.Maturity) * cp.EAD
		hedge := math.Min(cp.HedgeNotional, cp.EAD) * rw * cvaHedgeFactor
		net := math.Max(0, gross-hedge)

		res.ByCounterparty = append(res.ByCounterparty, models.CounterpartyCVA{
			Name:         cp.Name,
			EAD:          cp.EAD,
			Rating:       cp.Rating,
			RiskWeight:   rw,
			GrossCapital: gross,
			HedgeBenefit: hedge,
			NetCapital:   net,
		})
		res.TotalEAD += cp.EAD
		res.HedgingBenefit += hedge
		sumNet += net
		sumSquares += net * net
	}

	res.TotalCVACapital = math.Sqrt(math.Pow(cvaCorrelation*sumNet, 2) + (1-cvaCorrelation)*sumSquares)
	if res.TotalEAD > 0 {
		res.AggregateRiskWeight = res.TotalCVACapital / res.TotalEAD
	}
	return res, nil
}

// LargeExposures measures net exposures to groups of connected clients
// against Tier 1 capital and flags those above the large-exposure limit.
func (c *Calculator) LargeExposures(in models.LargeExposuresInput) (*models.LargeExposuresResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if in.Tier1Capital <= 0 {
		return nil, zeroDenominator("tier1_capital")
	}

	limit := c.params.LargeExposureLimit
	if in.IsGSIB {
		limit = c.params.GSIBExposureLimit
	}
	limitLabel := utils.FormatPercentPlaces(limit, 0)

	res := &models.LargeExposuresResult{
		Exposures:    make([]models.LargeExposureDetail, 0, len(in.Exposures)),
		Tier1Capital: in.Tier1Capital,
		LimitPercent: limit,
	}
	for _, e := range in.Exposures {
		net := math.Max(0, e.GrossExposure-e.Collateral-e.Guarantees)
		share := net / in.Tier1Capital
		detail := models.LargeExposureDetail{
			GroupName:             e.GroupName,
			GrossExposure:         e.GrossExposure,
			Collateral:            e.Collateral,
			Guarantees:            e.Guarantees,
			NetExposure:           net,
			PercentOfTier1:        share,
			PercentOfTier1Display: utils.FormatPercent(share),
			IsLargeExposure:       share >= largeExposureThreshold,
			IsBreach:              share > limit,
			Limit:                 limitLabel,
		}
		if detail.IsLargeExposure {
			res.LargeExposuresCount++
			res.TotalConcentration += share
		}
		if detail.IsBreach {
			res.BreachesCount++
		}
		res.Exposures = append(res.Exposures, detail)
	}
	return res, nil
}
