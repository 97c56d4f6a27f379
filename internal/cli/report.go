package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/vendorsync/pkg/reconcile"
)

// crateReport is one crate's entry in the machine-readable report.
type crateReport struct {
	Name       string   `json:"name"`
	Constraint string   `json:"constraint,omitempty"`
	Locked     string   `json:"locked,omitempty"`
	Package    string   `json:"package,omitempty"`
	Version    string   `json:"version,omitempty"`
	DefinedIn  []string `json:"defined_in,omitempty"`
}

// report summarizes a reconciliation run for output.
type report struct {
	Total           int           `json:"total"`
	DistroSatisfied int           `json:"distro_satisfied"`
	MustVendor      int           `json:"must_vendor"`
	Satisfied       []crateReport `json:"satisfied"`
	Vendored        []crateReport `json:"vendored"`
}

// newReport converts a reconciliation result into report form. Entries keep
// the result's lexicographic order.
func newReport(result *reconcile.Result) *report {
	r := &report{
		Total:           result.Total(),
		DistroSatisfied: len(result.DistroSatisfied),
		MustVendor:      len(result.MustVendor),
		Satisfied:       []crateReport{},
		Vendored:        []crateReport{},
	}
	for _, m := range result.DistroSatisfied {
		r.Satisfied = append(r.Satisfied, crateReport{
			Name:       m.Requirement.Name,
			Constraint: m.Requirement.Constraint,
			Locked:     m.Requirement.Locked,
			Package:    m.Record.Name,
			Version:    m.Record.Version,
			DefinedIn:  m.Requirement.Sources,
		})
	}
	for _, req := range result.MustVendor {
		r.Vendored = append(r.Vendored, crateReport{
			Name:       req.Name,
			Constraint: req.Constraint,
			Locked:     req.Locked,
			DefinedIn:  req.Sources,
		})
	}
	return r
}

// renderJSON writes the report as indented JSON.
func (r *report) renderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// renderText writes a human-readable summary.
func (r *report) renderText(w io.Writer) error {
	fmt.Fprintf(w, "Checked %d crates: %d provided by the distribution, %d to vendor\n",
		r.Total, r.DistroSatisfied, r.MustVendor)
	if r.Total > 0 {
		fmt.Fprintf(w, "Distribution coverage: %.0f%%\n", 100*float64(r.DistroSatisfied)/float64(r.Total))
	}

	if len(r.Satisfied) > 0 {
		fmt.Fprintf(w, "\nProvided by the distribution:\n")
		for _, c := range r.Satisfied {
			fmt.Fprintf(w, "  %-30s %s %s\n", c.Name, c.Package, c.Version)
		}
	}
	if len(r.Vendored) > 0 {
		fmt.Fprintf(w, "\nTo vendor:\n")
		for _, c := range r.Vendored {
			line := c.Name
			if c.Locked != "" {
				line += " " + c.Locked
			} else if c.Constraint != "" {
				line += " (" + c.Constraint + ")"
			}
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}
