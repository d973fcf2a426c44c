package calculator

// Params holds the regulatory thresholds the engines compare against.
// Values are fractions (0.03 = 3%).
type Params struct {
	LeverageMinimum          float64 `json:"leverage_minimum"`
	LCRMinimum               float64 `json:"lcr_minimum"`
	NSFRMinimum              float64 `json:"nsfr_minimum"`
	MRELRWARequirement       float64 `json:"mrel_rwa_requirement"`
	MRELLEMRequirement       float64 `json:"mrel_lem_requirement"`
	SubordinationRequirement float64 `json:"subordination_requirement"`
	IRRBBOutlierThreshold    float64 `json:"irrbb_outlier_threshold"`
	STSFloor                 float64 `json:"sts_floor"`
	NonSTSFloor              float64 `json:"non_sts_floor"`
	CapitalRatio             float64 `json:"capital_ratio"`
	KSAMultiplier            float64 `json:"ksa_multiplier"`
	LargeExposureLimit       float64 `json:"large_exposure_limit"`
	GSIBExposureLimit        float64 `json:"gsib_exposure_limit"`
}

// DefaultParams returns the Basel III / CRR values.
func DefaultParams() Params {
	return Params{
		LeverageMinimum:          0.03,
		LCRMinimum:               1.0,
		NSFRMinimum:              1.0,
		MRELRWARequirement:       0.18,
		MRELLEMRequirement:       0.0675,
		SubordinationRequirement: 0.135,
		IRRBBOutlierThreshold:    0.15,
		STSFloor:                 0.10,
		NonSTSFloor:              0.15,
		CapitalRatio:             0.08,
		KSAMultiplier:            1.5,
		LargeExposureLimit:       0.25,
		GSIBExposureLimit:        0.10,
	}
}

// withDefaults fills zero-valued fields from DefaultParams so a partially
// configured Params never compares against a 0% minimum.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&p.LeverageMinimum, d.LeverageMinimum)
	fill(&p.LCRMinimum, d.LCRMinimum)
	fill(&p.NSFRMinimum, d.NSFRMinimum)
	fill(&p.MRELRWARequirement, d.MRELRWARequirement)
	fill(&p.MRELLEMRequirement, d.MRELLEMRequirement)
	fill(&p.SubordinationRequirement, d.SubordinationRequirement)
	fill(&p.IRRBBOutlierThreshold, d.IRRBBOutlierThreshold)
	fill(&p.STSFloor, d.STSFloor)
	fill(&p.NonSTSFloor, d.NonSTSFloor)
	fill(&p.CapitalRatio, d.CapitalRatio)
	fill(&p.KSAMultiplier, d.KSAMultiplier)
	fill(&p.LargeExposureLimit, d.LargeExposureLimit)
	fill(&p.GSIBExposureLimit, d.GSIBExposureLimit)
	return p
}

// Supervisory factors. These follow the Basel text and are not tunable per deployment.
const (
	maxRiskWeight = 12.5 // 1250%

	// LCR HQLA haircuts (applied as the retained share).
	hqlaLevel1Factor  = 1.00
	hqlaLevel2AFactor = 0.85
	hqlaLevel2BFactor = 0.50
	level2BCapRatio   = 15.0 / 85.0
	level2CapRatio    = 2.0 / 3.0

	// LCR 30-day run-off rates.
	runoffRetailStable            = 0.05
	runoffRetailLessStable        = 0.10
	runoffWholesaleOperational    = 0.25
	runoffWholesaleNonOperational = 1.00
	runoffSecuredFunding          = 1.00
	runoffOther                   = 1.00
	inflowCapRatio                = 0.75

	// NSFR available stable funding factors.
	asfCapital          = 1.00
	asfStableRetail     = 0.95
	asfLessStable       = 0.90
	asfWholesaleShort   = 0.50
	asfOtherLiabilities = 0.00

	// NSFR required stable funding factors.
	rsfCashReserves   = 0.05
	rsfHQLALevel2     = 0.15
	rsfLoansToFIShort = 0.10
	rsfCorporateLoans = 0.85
	rsfMortgages      = 0.65
	rsfOtherLoans     = 1.00
	rsfNPL            = 1.00
	rsfOtherAssets    = 1.00

	// SEC-SA supervisory p and weight of delinquent exposures.
	secSAParameter   = 0.5
	secSADelinquentK = 0.5
	// SEC-IRBA p floor.
	secIRBAMinP = 0.3

	// Large exposures reporting threshold (share of Tier 1).
	largeExposureThreshold = 0.10

	// CVA basic approach.
	cvaMultiplier     = 2.33
	cvaHedgeFactor    = 0.5
	cvaCorrelation    = 0.25
	cvaDefaultRWeight = 0.10

	// IRB.
	irbPDFloor    = 0.0003
	irbConfidence = 0.999
	irbMortgageR  = 0.15
)
