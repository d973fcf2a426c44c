package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/seenimoa/bris/internal/calculator"
	"github.com/seenimoa/bris/internal/observability"
	"github.com/seenimoa/bris/pkg/models"
)

// CalculationEvent is broadcast over WebSocket after every successful calculation.
type CalculationEvent struct {
	Engine    string    `json:"engine"`
	Compliant *bool     `json:"compliant,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// calculate decodes the request body on top of in, runs fn and writes the
// result. verdict, when non-nil, extracts the compliance flag for metrics
// and the WebSocket event.
func calculate[I, O any](s *Server, w http.ResponseWriter, r *http.Request, engine string, in I, fn func(I) (*O, error), verdict func(*O) bool) {
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	start := time.Now()
	out, err := fn(in)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveCalculation(engine, calculationOutcome(err), elapsed)
		s.writeFailure(w, r, err)
		return
	}
	s.metrics.ObserveCalculation(engine, observability.OutcomeOK, elapsed)

	ev := CalculationEvent{Engine: engine, Timestamp: time.Now().UTC()}
	if verdict != nil {
		ok := verdict(out)
		s.metrics.ObserveCompliance(engine, ok)
		ev.Compliant = &ok
	}
	s.wsHub.Broadcast(WSMessage{Type: "calculation_complete", Data: ev})

	writeOK(w, out)
}

func calculationOutcome(err error) string {
	switch {
	case errors.Is(err, calculator.ErrInvalidRange):
		return observability.OutcomeInvalidRange
	case errors.Is(err, calculator.ErrDivisionByZero):
		return observability.OutcomeDivisionByZero
	default:
		return observability.OutcomeError
	}
}

// ── Securitization ──

func (s *Server) handleSecuritization(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "securitization", models.SecuritizationInput{}, s.calc.Securitization, nil)
}

func (s *Server) handleSecuritizationCompare(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "securitization_compare", models.SecuritizationInput{}, s.calc.CompareSecuritization, nil)
}

// ── Capital and liquidity ratios ──

func (s *Server) handleLeverage(w http.ResponseWriter, r *http.Request) {
	// Off-balance items count in full unless a CCF is given.
	in := models.LeverageInput{CCFOffBalance: 1.0}
	calculate(s, w, r, "leverage", in, s.calc.Leverage, func(o *models.LeverageResult) bool { return o.Compliant })
}

func (s *Server) handleLCR(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "lcr", models.LCRInput{}, s.calc.LCR, func(o *models.LCRResult) bool { return o.Compliant })
}

func (s *Server) handleNSFR(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "nsfr", models.NSFRInput{}, s.calc.NSFR, func(o *models.NSFRResult) bool { return o.Compliant })
}

func (s *Server) handleMREL(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "mrel", models.MRELInput{}, s.calc.MREL, func(o *models.MRELResult) bool { return o.OverallCompliant })
}

func (s *Server) handleIRRBB(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "irrbb", models.IRRBBInput{}, s.calc.IRRBB, func(o *models.IRRBBResult) bool { return o.OverallCompliant })
}

// ── Credit risk ──

func (s *Server) handleRWA(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "rwa", models.RWAInput{}, s.calc.RWA, nil)
}

func (s *Server) handleCVA(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "cva", models.CVAInput{}, s.calc.CVA, nil)
}

func (s *Server) handleLargeExposures(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "large_exposures", models.LargeExposuresInput{}, s.calc.LargeExposures,
		func(o *models.LargeExposuresResult) bool { return o.BreachesCount == 0 })
}
