package calculator

import (
	"fmt"
	"math"

	"github.com/seenimoa/bris/pkg/models"
	"github.com/seenimoa/bris/pkg/utils"
)

// LCR computes the liquidity coverage ratio: haircut HQLA (after the Level 2
// composition caps) over 30-day net cash outflows.
func (c *Calculator) LCR(in models.LCRInput) (*models.LCRResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	l1 := in.HQLALevel1 * hqlaLevel1Factor
	l2a := in.HQLALevel2A * hqlaLevel2AFactor
	l2b := in.HQLALevel2B * hqlaLevel2BFactor

	caps := map[string]string{}
	// Level 2B at most 15% and Level 2 at most 40% of the stock.
	adj15 := math.Max(0, l2b-level2BCapRatio*(l1+l2a))
	adj40 := math.Max(0, l2a+l2b-adj15-level2CapRatio*l1)
	if adj15 > 0 {
		caps["level2b_15pct"] = fmt.Sprintf("Level 2B reduced by %.2f", adj15)
	}
	if adj40 > 0 {
		caps["level2_40pct"] = fmt.Sprintf("Level 2 reduced by %.2f", adj40)
	}
	hqla := l1 + l2a + l2b - adj15 - adj40

	outflows := map[string]float64{
		"retail_stable":             in.RetailStable * runoffRetailStable,
		"retail_less_stable":        in.RetailLessStable * runoffRetailLessStable,
		"wholesale_operational":     in.WholesaleOperational * runoffWholesaleOperational,
		"wholesale_non_operational": in.WholesaleNonOperational * runoffWholesaleNonOperational,
		"secured_funding":           in.SecuredFunding * runoffSecuredFunding,
		"other":                     in.OtherOutflows * runoffOther,
	}
	gross := sum(outflows, "retail_stable", "retail_less_stable", "wholesale_operational",
		"wholesale_non_operational", "secured_funding", "other")

	inflows := in.Inflows
	if limit := inflowCapRatio * gross; inflows > limit {
		caps["inflow_cap_75pct"] = fmt.Sprintf("Inflows capped from %.2f to %.2f", inflows, limit)
		inflows = limit
	}

	net := gross - inflows
	if net <= 0 {
		return nil, zeroDenominator("net_outflows")
	}

	lcr := hqla / net
	return &models.LCRResult{
		LCR:             lcr,
		LCRPercent:      utils.FormatPercent(lcr),
		Minimum:         c.params.LCRMinimum,
		Compliant:       lcr >= c.params.LCRMinimum,
		BufferToMinimum: lcr - c.params.LCRMinimum,
		HQLATotal:       in.HQLALevel1 + in.HQLALevel2A + in.HQLALevel2B,
		HQLAAdjusted:    hqla,
		TotalOutflows:   gross,
		TotalInflows:    inflows,
		NetOutflows:     net,
		// Haircut values per level plus the cap reductions, summing to HQLAAdjusted.
		HQLABreakdown: map[string]float64{
			"level1":            l1,
			"level2a":           l2a,
			"level2b":           l2b,
			"level2b_cap_15pct": -adj15,
			"level2_cap_40pct":  -adj40,
		},
		OutflowBreakdown: outflows,
		CapsApplied:      caps,
	}, nil
}

// NSFR computes available over required stable funding.
func (c *Calculator) NSFR(in models.NSFRInput) (*models.NSFRResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	asf := map[string]float64{
		"capital_long_term":      in.CapitalLongTerm * asfCapital,
		"stable_retail_deposits": in.StableRetailDeposits * asfStableRetail,
		"less_stable_deposits":   in.LessStableDeposits * asfLessStable,
		"wholesale_short_term":   in.WholesaleShortTerm * asfWholesaleShort,
		"other_liabilities":      in.OtherLiabilities * asfOtherLiabilities,
	}
	rsf := map[string]float64{
		"cash_reserves":     in.CashReserves * rsfCashReserves,
		"hqla_level2":       in.HQLALevel2 * rsfHQLALevel2,
		"loans_to_fi_short": in.LoansToFIShort * rsfLoansToFIShort,
		"corporate_loans":   in.CorporateLoans * rsfCorporateLoans,
		"mortgages":         in.Mortgages * rsfMortgages,
		"other_loans":       in.OtherLoans * rsfOtherLoans,
		"npl_assets":        in.NPLAssets * rsfNPL,
		"other_assets":      in.OtherAssets * rsfOtherAssets,
	}

	totalASF := sum(asf, "capital_long_term", "stable_retail_deposits", "less_stable_deposits",
		"wholesale_short_term", "other_liabilities")
	totalRSF := sum(rsf, "cash_reserves", "hqla_level2", "loans_to_fi_short", "corporate_loans",
		"mortgages", "other_loans", "npl_assets", "other_assets")
	if totalRSF <= 0 {
		return nil, zeroDenominator("required_stable_funding")
	}

	nsfr := totalASF / totalRSF
	return &models.NSFRResult{
		NSFR:            nsfr,
		NSFRPercent:     utils.FormatPercent(nsfr),
		Minimum:         c.params.NSFRMinimum,
		Compliant:       nsfr >= c.params.NSFRMinimum,
		BufferToMinimum: nsfr - c.params.NSFRMinimum,
		TotalASF:        totalASF,
		TotalRSF:        totalRSF,
		ASFBreakdown:    asf,
		RSFBreakdown:    rsf,
	}, nil
}

// sum adds the named entries in order so results do not depend on map iteration.
func sum(m map[string]float64, keys ...string) float64 {
	var total float64
	for _, k := range keys {
		total += m[k]
	}
	return total
}
