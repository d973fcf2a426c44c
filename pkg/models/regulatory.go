package models

// --- Securitization ---

// SecuritizationApproach selects the risk-weight method for a tranche.
type SecuritizationApproach string

const (
	ApproachSECIRBA SecuritizationApproach = "SEC-IRBA"
	ApproachSECSA   SecuritizationApproach = "SEC-SA"
)

// PoolType distinguishes wholesale from retail underlying pools (SEC-IRBA p table).
type PoolType string

const (
	PoolWholesale PoolType = "wholesale"
	PoolRetail    PoolType = "retail"
)

// SecuritizationInput describes a tranche and its underlying pool.
// All rates are fractions; percent inputs are divided by 100 before they get here.
type SecuritizationInput struct {
	KIRB       float64                `json:"kirb"                        validate:"gte=0,lte=1"`
	KSA        *float64               `json:"ksa,omitempty"               validate:"omitempty,gte=0,lte=1"` // nil = KIRB × ksa_multiplier
	LGD        float64                `json:"lgd"                         validate:"gte=0,lte=1"`
	Maturity   float64                `json:"maturity"                    validate:"gte=0"` // years
	Attachment float64                `json:"attachment"                  validate:"gte=0,lte=1"`
	Detachment float64                `json:"detachment"                  validate:"gte=0,lte=1,gtfield=Attachment"`
	PoolSize   float64                `json:"pool_size"                   validate:"gte=0"` // EUR millions
	Approach   SecuritizationApproach `json:"approach,omitempty"          validate:"omitempty,oneof=SEC-IRBA SEC-SA"`
	IsSTS      bool                   `json:"is_sts"`

	// SEC-SA share of delinquent exposures (W).
	DelinquencyRatio float64 `json:"delinquency_ratio,omitempty" validate:"gte=0,lte=1"`
	// SEC-IRBA p-parameter row selection.
	PoolType        PoolType `json:"pool_type,omitempty"        validate:"omitempty,oneof=wholesale retail"`
	NonSenior       bool     `json:"non_senior,omitempty"`
	EffectiveNumber float64  `json:"effective_number,omitempty" validate:"gte=0"` // N; 0 = highly granular
}

// SecuritizationResult is the outcome of a single-approach tranche calculation.
type SecuritizationResult struct {
	Approach           SecuritizationApproach `json:"approach"`
	PParameter         float64                `json:"p_parameter"`
	KParameter         float64                `json:"k_parameter"` // KIRB or K_A actually used
	RiskWeight         float64                `json:"risk_weight"`
	RiskWeightPercent  string                 `json:"risk_weight_percent"`
	TrancheNotional    float64                `json:"tranche_notional"`
	RWA                *float64               `json:"rwa,omitempty"`
	CapitalRequirement *float64               `json:"capital_requirement,omitempty"`
	CalculationSteps   []string               `json:"calculation_steps"`
	Inputs             SecuritizationInput    `json:"inputs"`
}

// SecuritizationComparison puts SEC-IRBA and SEC-SA side by side for one tranche.
type SecuritizationComparison struct {
	SecIRBA         *SecuritizationResult  `json:"sec_irba"`
	SecSA           *SecuritizationResult  `json:"sec_sa"`
	OptimalApproach SecuritizationApproach `json:"optimal_approach"`
	RWDifference    float64                `json:"rw_difference"`
	CapitalSavings  *float64               `json:"capital_savings,omitempty"`
	Recommendation  string                 `json:"recommendation"`
}

// --- Leverage ratio ---

// LeverageInput holds Tier 1 capital and the components of the exposure measure.
type LeverageInput struct {
	Tier1Capital        float64 `json:"tier1_capital"         validate:"gte=0"`
	OnBalanceExposures  float64 `json:"on_balance_exposures"  validate:"gte=0"`
	DerivativeExposures float64 `json:"derivative_exposures"  validate:"gte=0"`
	SFTExposures        float64 `json:"sft_exposures"         validate:"gte=0"`
	OffBalanceItems     float64 `json:"off_balance_items"     validate:"gte=0"`
	CCFOffBalance       float64 `json:"ccf_off_balance"       validate:"gte=0,lte=1"`
}

// LeverageResult is the leverage ratio with its exposure breakdown.
type LeverageResult struct {
	LeverageRatio        float64            `json:"leverage_ratio"`
	LeverageRatioPercent string             `json:"leverage_ratio_percent"`
	TotalExposureMeasure float64            `json:"total_exposure_measure"`
	Minimum              float64            `json:"minimum"`
	Compliant            bool               `json:"compliant"`
	BufferToMinimum      float64            `json:"buffer_to_minimum"`
	Breakdown            map[string]float64 `json:"breakdown"`
}

// --- MREL / TLAC ---

// MRELInput holds own funds, eligible liabilities and the two denominators.
// Requirement overrides are optional; zero means "use the configured requirement".
type MRELInput struct {
	CET1               float64 `json:"cet1"                 validate:"gte=0"`
	AT1                float64 `json:"at1"                  validate:"gte=0"`
	Tier2              float64 `json:"tier2"                validate:"gte=0"`
	SeniorNonPreferred float64 `json:"senior_non_preferred" validate:"gte=0"`
	OtherEligible      float64 `json:"other_eligible,omitempty" validate:"gte=0"` // senior preferred eligible
	TotalRWA           float64 `json:"total_rwa"            validate:"gte=0"`
	LeverageExposure   float64 `json:"leverage_exposure"    validate:"gte=0"`

	MRELRequirementRWA       float64 `json:"mrel_requirement_rwa,omitempty"      validate:"gte=0,lte=1"`
	MRELRequirementLEM       float64 `json:"mrel_requirement_lem,omitempty"      validate:"gte=0,lte=1"`
	SubordinationRequirement float64 `json:"subordination_requirement,omitempty" validate:"gte=0,lte=1"`
}

// MRELResult reports the three MREL tests and their buffers.
type MRELResult struct {
	TotalMREL                 float64            `json:"total_mrel"`
	SubordinatedAmount        float64            `json:"subordinated_amount"`
	MRELRatioRWA              float64            `json:"mrel_ratio_rwa"`
	MRELRatioRWAPercent       string             `json:"mrel_ratio_rwa_percent"`
	MRELRatioLEM              float64            `json:"mrel_ratio_lem"`
	MRELRatioLEMPercent       string             `json:"mrel_ratio_lem_percent"`
	SubordinationRatio        float64            `json:"subordination_ratio"`
	SubordinationRatioPercent string             `json:"subordination_ratio_percent"`
	RequirementRWA            float64            `json:"requirement_rwa"`
	RequirementLEM            float64            `json:"requirement_lem"`
	RequirementSubordination  float64            `json:"requirement_subordination"`
	CompliantRWA              bool               `json:"compliant_rwa"`
	CompliantLEM              bool               `json:"compliant_lem"`
	CompliantSubordination    bool               `json:"compliant_subordination"`
	OverallCompliant          bool               `json:"overall_compliant"`
	BufferRWA                 float64            `json:"buffer_rwa"`
	BufferLEM                 float64            `json:"buffer_lem"`
	BufferSubordination       float64            `json:"buffer_subordination"`
	Breakdown                 map[string]float64 `json:"breakdown"`
}

// --- Credit RWA ---

// RWAInput describes a single credit exposure under SA or IRB.
type RWAInput struct {
	ExposureClass      string   `json:"exposure_class"  validate:"required"`
	ExposureAmount     float64  `json:"exposure_amount" validate:"gte=0"`
	Approach           string   `json:"approach,omitempty" validate:"omitempty,oneof=SA IRB"`
	PD                 float64  `json:"pd,omitempty"       validate:"gte=0,lte=1"`
	LGD                float64  `json:"lgd,omitempty"      validate:"gte=0,lte=1"`
	Maturity           float64  `json:"maturity,omitempty" validate:"gte=0"`
	RiskWeightOverride *float64 `json:"risk_weight_override,omitempty" validate:"omitempty,gte=0,lte=12.5"`
}

// RWAResult is the risk-weighted amount of one exposure.
type RWAResult struct {
	ExposureClass      string   `json:"exposure_class"`
	Approach           string   `json:"approach"`
	RiskWeight         float64  `json:"risk_weight"`
	RiskWeightPercent  string   `json:"risk_weight_percent"`
	RWA                float64  `json:"rwa"`
	CapitalRequirement float64  `json:"capital_requirement"`
	CalculationSteps   []string `json:"calculation_steps"`
}

// --- CVA ---

// CounterpartyExposure is one netting set for the CVA charge.
type CounterpartyExposure struct {
	Name          string  `json:"name"           validate:"required"`
	EAD           float64 `json:"ead"            validate:"gte=0"`
	Rating        string  `json:"rating"         validate:"required"`
	Maturity      float64 `json:"maturity"       validate:"gte=0"`
	HedgeNotional float64 `json:"hedge_notional" validate:"gte=0"`
}

// CVAInput lists the counterparties entering the CVA charge.
type CVAInput struct {
	Counterparties []CounterpartyExposure `json:"counterparties" validate:"required,min=1,dive"`
}

// CounterpartyCVA is the per-counterparty contribution to the CVA charge.
type CounterpartyCVA struct {
	Name         string  `json:"name"`
	EAD          float64 `json:"ead"`
	Rating       string  `json:"rating"`
	RiskWeight   float64 `json:"risk_weight"`
	GrossCapital float64 `json:"cva_capital_gross"`
	HedgeBenefit float64 `json:"hedge_benefit"`
	NetCapital   float64 `json:"cva_capital_net"`
}

// CVAResult aggregates the CVA capital across counterparties.
type CVAResult struct {
	TotalCVACapital     float64           `json:"total_cva_capital"`
	ByCounterparty      []CounterpartyCVA `json:"cva_capital_by_counterparty"`
	TotalEAD            float64           `json:"total_ead"`
	HedgingBenefit      float64           `json:"hedging_benefit"`
	AggregateRiskWeight float64           `json:"aggregate_risk_weight"`
}

// --- Large exposures ---

// GroupExposure is the exposure to a group of connected clients.
type GroupExposure struct {
	GroupName     string  `json:"group_name"     validate:"required"`
	GrossExposure float64 `json:"gross_exposure" validate:"gte=0"`
	Collateral    float64 `json:"collateral"     validate:"gte=0"`
	Guarantees    float64 `json:"guarantees"     validate:"gte=0"`
}

// LargeExposuresInput holds Tier 1 capital and the exposures to test.
type LargeExposuresInput struct {
	Tier1Capital float64         `json:"tier1_capital" validate:"gte=0"`
	IsGSIB       bool            `json:"is_gsib"`
	Exposures    []GroupExposure `json:"exposures"     validate:"dive"`
}

// LargeExposureDetail is the per-group result.
type LargeExposureDetail struct {
	GroupName             string  `json:"group_name"`
	GrossExposure         float64 `json:"gross_exposure"`
	Collateral            float64 `json:"collateral"`
	Guarantees            float64 `json:"guarantees"`
	NetExposure           float64 `json:"net_exposure"`
	PercentOfTier1        float64 `json:"percent_of_tier1"`
	PercentOfTier1Display string  `json:"percent_of_tier1_display"`
	IsLargeExposure       bool    `json:"is_large_exposure"`
	IsBreach              bool    `json:"is_breach"`
	Limit                 string  `json:"limit"`
}

// LargeExposuresResult summarises large-exposure concentrations and limit breaches.
type LargeExposuresResult struct {
	Exposures           []LargeExposureDetail `json:"exposures_detail"`
	LargeExposuresCount int                   `json:"large_exposures_count"`
	BreachesCount       int                   `json:"breaches_count"`
	TotalConcentration  float64               `json:"total_concentration"`
	Tier1Capital        float64               `json:"tier1_capital"`
	LimitPercent        float64               `json:"limit_percent"`
}
