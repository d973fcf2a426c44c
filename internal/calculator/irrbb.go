package calculator

import (
	"math"
	"sort"

	"github.com/seenimoa/bris/pkg/models"
	"github.com/seenimoa/bris/pkg/utils"
)

// Maturity buckets in repricing order.
var irrbbBuckets = []string{"ON", "1M", "3M", "6M", "1Y", "2Y", "3Y", "5Y", "7Y", "10Y", "15Y", "20Y+"}

// irrbbDurations is the modified duration (years) assumed for each bucket.
var irrbbDurations = map[string]float64{
	"ON":   0.003,
	"1M":   0.08,
	"3M":   0.25,
	"6M":   0.5,
	"1Y":   1,
	"2Y":   2,
	"3Y":   3,
	"5Y":   5,
	"7Y":   7,
	"10Y":  10,
	"15Y":  15,
	"20Y+": 20,
}

type shockScenario struct {
	ID    string
	Name  string
	Shock []float64 // basis points, aligned with irrbbBuckets
}

// irrbbScenarios are the six prescribed EBA/BCBS shocks.
var irrbbScenarios = []shockScenario{
	{"parallel_up", "Parallel Up (+200bp)", uniformShock(200)},
	{"parallel_down", "Parallel Down (-200bp)", uniformShock(-200)},
	{"steepener", "Steepener", steepener},
	{"flattener", "Flattener", negate(steepener)},
	{"short_rates_up", "Short Rates Up", shortUp},
	{"short_rates_down", "Short Rates Down", negate(shortUp)},
}

var (
	steepener = []float64{-100, -90, -80, -60, -40, 0, 20, 40, 60, 80, 100, 100}
	shortUp   = []float64{200, 180, 150, 100, 60, 30, 10, 0, 0, 0, 0, 0}
)

// IRRBB applies each shock scenario to the repricing gap profile and runs
// the supervisory outlier test on ΔEVE as a share of Tier 1 capital.
func (c *Calculator) IRRBB(in models.IRRBBInput) (*models.IRRBBResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(in.Gaps))
	for label := range in.Gaps {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if _, ok := irrbbDurations[label]; !ok {
			return nil, rangeErr("gaps."+label, "is not a known maturity bucket")
		}
		if v := in.Gaps[label]; math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, rangeErr("gaps."+label, "must be a finite amount")
		}
	}
	if in.Tier1Capital <= 0 {
		return nil, zeroDenominator("tier1_capital")
	}

	res := &models.IRRBBResult{
		Scenarios:        make([]models.IRRBBScenarioResult, 0, len(irrbbScenarios)),
		Tier1Capital:     in.Tier1Capital,
		ThresholdPercent: c.params.IRRBBOutlierThreshold,
		OverallCompliant: true,
		GapProfile:       make(map[string]float64, len(in.Gaps)),
	}
	for k, v := range in.Gaps {
		res.GapProfile[k] = v
	}

	worst := -1.0
	for _, sc := range irrbbScenarios {
		dEVE := deltaEVE(in.Gaps, sc.Shock)
		pct := math.Abs(dEVE) / in.Tier1Capital
		breach := pct > c.params.IRRBBOutlierThreshold

		res.Scenarios = append(res.Scenarios, models.IRRBBScenarioResult{
			Scenario:            sc.ID,
			ScenarioName:        sc.Name,
			DeltaEVE:            dEVE,
			DeltaPercent:        pct,
			DeltaPercentDisplay: utils.FormatPercent(pct),
			BreachesThreshold:   breach,
		})
		if breach {
			res.OverallCompliant = false
		}
		if pct > worst {
			worst = pct
			res.WorstScenario = sc.ID
			res.WorstDeltaEVE = dEVE
			res.WorstDeltaPercent = pct
		}
	}
	res.WorstDeltaPercentDisplay = utils.FormatPercent(res.WorstDeltaPercent)
	return res, nil
}

// deltaEVE = −Σ gap · duration · shock / 10⁴.
func deltaEVE(gaps map[string]float64, shock []float64) float64 {
	var d float64
	for i, bucket := range irrbbBuckets {
		gap, ok := gaps[bucket]
		if !ok {
			continue
		}
		d -= gap * irrbbDurations[bucket] * shock[i] / 10000
	}
	return d
}

func uniformShock(bp float64) []float64 {
	s := make([]float64, len(irrbbBuckets))
	for i := range s {
		s[i] = bp
	}
	return s
}

func negate(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = -v
	}
	return out
}
