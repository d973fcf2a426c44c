package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/seenimoa/bris/internal/calculator"
	"github.com/seenimoa/bris/internal/config"
	"github.com/seenimoa/bris/pkg/models"
)

// engines maps CLI engine names to a decode-and-run function.
var engines = map[string]func(*calculator.Calculator, io.Reader) (interface{}, error){
	"securitization": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.SecuritizationInput{}, c.Securitization)
	},
	"securitization-compare": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.SecuritizationInput{}, c.CompareSecuritization)
	},
	"leverage": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.LeverageInput{CCFOffBalance: 1.0}, c.Leverage)
	},
	"lcr": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.LCRInput{}, c.LCR)
	},
	"nsfr": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.NSFRInput{}, c.NSFR)
	},
	"mrel": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.MRELInput{}, c.MREL)
	},
	"irrbb": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.IRRBBInput{}, c.IRRBB)
	},
	"rwa": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.RWAInput{}, c.RWA)
	},
	"cva": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.CVAInput{}, c.CVA)
	},
	"large-exposures": func(c *calculator.Calculator, r io.Reader) (interface{}, error) {
		return run(r, models.LargeExposuresInput{}, c.LargeExposures)
	},
}

func run[I, O any](r io.Reader, in I, fn func(I) (*O, error)) (interface{}, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return fn(in)
}

func engineNames() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func engineList() string {
	return strings.Join(engineNames(), ", ")
}

// runCalc decodes the input for engine from in, runs it with the configured
// thresholds and writes the result to out.
func runCalc(cfg *config.Config, engine string, in io.Reader, format string, out io.Writer) error {
	fn, ok := engines[engine]
	if !ok {
		return fmt.Errorf("unknown engine %q (available: %s)", engine, engineList())
	}

	calc := calculator.New(cfg.Regulation.Params())
	res, err := fn(calc, in)
	if err != nil {
		return fmt.Errorf("%s: %w", engine, err)
	}
	return writeOutput(out, res, format)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toGeneric(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
