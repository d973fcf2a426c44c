package models

// --- LCR ---

// LCRInput holds HQLA stocks (pre-haircut), 30-day outflow balances and inflows.
type LCRInput struct {
	HQLALevel1              float64 `json:"hqla_level1"               validate:"gte=0"`
	HQLALevel2A             float64 `json:"hqla_level2a"              validate:"gte=0"`
	HQLALevel2B             float64 `json:"hqla_level2b"              validate:"gte=0"`
	RetailStable            float64 `json:"retail_stable"             validate:"gte=0"`
	RetailLessStable        float64 `json:"retail_less_stable"        validate:"gte=0"`
	WholesaleOperational    float64 `json:"wholesale_operational"     validate:"gte=0"`
	WholesaleNonOperational float64 `json:"wholesale_non_operational" validate:"gte=0"`
	SecuredFunding          float64 `json:"secured_funding,omitempty" validate:"gte=0"`
	OtherOutflows           float64 `json:"other_outflows,omitempty"  validate:"gte=0"`
	Inflows                 float64 `json:"inflows"                   validate:"gte=0"`
}

// LCRResult is the liquidity coverage ratio with its HQLA and flow breakdowns.
type LCRResult struct {
	LCR              float64            `json:"lcr"`
	LCRPercent       string             `json:"lcr_percent"`
	Minimum          float64            `json:"minimum"`
	Compliant        bool               `json:"compliant"`
	BufferToMinimum  float64            `json:"buffer_to_minimum"`
	HQLATotal        float64            `json:"hqla_total"`
	HQLAAdjusted     float64            `json:"hqla_adjusted"`
	TotalOutflows    float64            `json:"total_outflows"`
	TotalInflows     float64            `json:"total_inflows"` // after the inflow cap
	NetOutflows      float64            `json:"net_outflows"`
	HQLABreakdown    map[string]float64 `json:"hqla_breakdown"`
	OutflowBreakdown map[string]float64 `json:"outflow_breakdown"`
	CapsApplied      map[string]string  `json:"caps_applied"`
}

// --- NSFR ---

// NSFRInput holds funding sources (ASF side) and assets (RSF side).
type NSFRInput struct {
	CapitalLongTerm      float64 `json:"capital_long_term"          validate:"gte=0"`
	StableRetailDeposits float64 `json:"stable_retail_deposits"     validate:"gte=0"`
	LessStableDeposits   float64 `json:"less_stable_deposits"       validate:"gte=0"`
	WholesaleShortTerm   float64 `json:"wholesale_short_term"       validate:"gte=0"`
	OtherLiabilities     float64 `json:"other_liabilities,omitempty" validate:"gte=0"`

	CashReserves   float64 `json:"cash_reserves"               validate:"gte=0"`
	HQLALevel2     float64 `json:"hqla_level2,omitempty"       validate:"gte=0"`
	LoansToFIShort float64 `json:"loans_to_fi_short,omitempty" validate:"gte=0"`
	CorporateLoans float64 `json:"corporate_loans"             validate:"gte=0"`
	Mortgages      float64 `json:"mortgages"                   validate:"gte=0"`
	OtherLoans     float64 `json:"other_loans"                 validate:"gte=0"`
	NPLAssets      float64 `json:"npl_assets,omitempty"        validate:"gte=0"`
	OtherAssets    float64 `json:"other_assets,omitempty"      validate:"gte=0"`
}

// NSFRResult is the net stable funding ratio with weighted ASF/RSF lines.
type NSFRResult struct {
	NSFR            float64            `json:"nsfr"`
	NSFRPercent     string             `json:"nsfr_percent"`
	Minimum         float64            `json:"minimum"`
	Compliant       bool               `json:"compliant"`
	BufferToMinimum float64            `json:"buffer_to_minimum"`
	TotalASF        float64            `json:"total_asf"`
	TotalRSF        float64            `json:"total_rsf"`
	ASFBreakdown    map[string]float64 `json:"asf_breakdown"`
	RSFBreakdown    map[string]float64 `json:"rsf_breakdown"`
}

// --- IRRBB ---

// IRRBBInput maps maturity-bucket labels (ON, 1M ... 20Y+) to signed repricing gaps.
type IRRBBInput struct {
	Tier1Capital float64            `json:"tier1_capital" validate:"gte=0"`
	Gaps         map[string]float64 `json:"gaps"`
}

// IRRBBScenarioResult is the EVE impact of one prescribed shock scenario.
type IRRBBScenarioResult struct {
	Scenario            string  `json:"scenario"`
	ScenarioName        string  `json:"scenario_name"`
	DeltaEVE            float64 `json:"delta_eve"`
	DeltaPercent        float64 `json:"delta_percent"`
	DeltaPercentDisplay string  `json:"delta_eve_percent_tier1"`
	BreachesThreshold   bool    `json:"breaches_threshold"`
}

// IRRBBResult collects all scenarios and the supervisory outlier test outcome.
type IRRBBResult struct {
	Scenarios                []IRRBBScenarioResult `json:"scenarios"`
	WorstScenario            string                `json:"worst_scenario"`
	WorstDeltaEVE            float64               `json:"worst_delta_eve"`
	WorstDeltaPercent        float64               `json:"worst_delta_percent"`
	WorstDeltaPercentDisplay string                `json:"worst_delta_eve_percent"`
	Tier1Capital             float64               `json:"tier1_capital"`
	ThresholdPercent         float64               `json:"threshold_percent"`
	OverallCompliant         bool                  `json:"overall_compliant"`
	GapProfile               map[string]float64    `json:"gap_profile"`
}
