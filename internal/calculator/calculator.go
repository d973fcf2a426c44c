// Package calculator implements the regulatory ratio engines: securitization
// risk weights (SEC-IRBA / SEC-SA), leverage ratio, LCR, NSFR, MREL, IRRBB,
// plus credit RWA, CVA and large exposures.
//
// Every engine is a pure function of its input record and the configured
// Params. Inputs are validated up front; a calculation either returns a full
// result or a *RangeError / *DivisionByZeroError, never Inf or NaN.
package calculator

// Calculator runs the engines against one set of regulatory parameters.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	params Params
}

// New creates a Calculator. Zero-valued thresholds fall back to DefaultParams.
func New(params Params) *Calculator {
	return &Calculator{params: params.withDefaults()}
}

// Params returns the thresholds in effect.
func (c *Calculator) Params() Params {
	return c.params
}
