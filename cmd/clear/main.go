// Command clear runs one uniform-price clearing offline and prints the
// equilibrium and the settlement table.
//
// Usage:
//
//	clear [-file participants.json] [-json] [-curves] [-epsilon 0.001]
//
// Without -file the reference scenario is cleared. "-file -" reads stdin.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/clearing"
	"github.com/gridmarket/spot-engine/internal/curve"
	"github.com/gridmarket/spot-engine/internal/meritorder"
	"github.com/gridmarket/spot-engine/internal/model"
	"github.com/gridmarket/spot-engine/internal/scenario"
	"github.com/gridmarket/spot-engine/internal/validate"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		slog.Error("clearing failed", "err", err)
		os.Exit(1)
	}
}

// input is one participant as written in a participants file.
type input struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Role     string          `json:"role"`
	Fuel     string          `json:"fuel"`
	Capacity decimal.Decimal `json:"capacity"`
	Price    decimal.Decimal `json:"price"`
}

type output struct {
	Result     model.ClearingResult  `json:"result"`
	Settlement []clearing.Settlement `json:"settlement"`
	Chart      *curve.Chart          `json:"chart,omitempty"`
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	file := fs.String("file", "", "JSON participant list (\"-\" for stdin); default scenario when empty")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	withCurves := fs.Bool("curves", false, "include supply and demand curve corners")
	epsilon := fs.String("epsilon", clearing.DefaultEpsilon.String(), "block exhaustion tolerance in MW")
	if err := fs.Parse(args); err != nil {
		return err
	}

	eps, err := decimal.NewFromString(*epsilon)
	if err != nil {
		return fmt.Errorf("parse -epsilon: %w", err)
	}
	engine, err := clearing.NewEngine(eps)
	if err != nil {
		return err
	}

	ps := scenario.Defaults()
	if *file != "" {
		if ps, err = readParticipants(*file, stdin); err != nil {
			return err
		}
	}
	if err := validate.NewLimits(0, decimal.Zero, decimal.Zero, decimal.Zero).CheckAll(ps); err != nil {
		return err
	}

	book := meritorder.Build(ps)
	result := engine.ComputeBook(book)
	out := output{Result: result, Settlement: clearing.SettlementTable(ps, result)}
	if *withCurves {
		chart := curve.NewChart(curve.Project(book), result)
		out.Chart = &chart
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printTable(stdout, out)
}

func readParticipants(path string, stdin io.Reader) ([]model.Participant, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var raw []input
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	ps := make([]model.Participant, 0, len(raw))
	for i, in := range raw {
		role, err := model.ParseRole(in.Role)
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w", i, err)
		}
		fuel, err := model.ParseFuel(in.Fuel)
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w", i, err)
		}
		name := in.Name
		if name == "" {
			name = in.ID
		}
		ps = append(ps, model.Participant{
			ID: in.ID, Name: name, Role: role, Fuel: fuel,
			Capacity: in.Capacity, Price: in.Price,
		})
	}
	return ps, nil
}

func printTable(w io.Writer, out output) error {
	r := out.Result
	fmt.Fprintf(w, "Clearing price:  %s $/MWh\n", r.ClearingPrice.StringFixed(2))
	fmt.Fprintf(w, "Cleared volume:  %s MW\n", r.ClearedVolume.StringFixed(1))
	fmt.Fprintf(w, "Market surplus:  %s $\n\n", r.MarketSurplus.StringFixed(2))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tNAME\tROLE\tCAPACITY\tPRICE\tCLEARED\tSTATUS\tCASHFLOW\tSURPLUS\t")
	for _, s := range out.Settlement {
		p := s.Participant
		name := p.Name
		if s.Order.IsMarginal {
			name += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.ID, name, p.Role,
			p.Capacity.StringFixed(1), p.Price.StringFixed(2),
			s.Order.ClearedQuantity.StringFixed(1), s.Status,
			s.Cashflow.StringFixed(2), s.Order.Surplus.StringFixed(2),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if out.Chart != nil {
		fmt.Fprintf(w, "\nSupply curve (x-axis to %s MW)\n", out.Chart.MaxQuantity.StringFixed(1))
		printPoints(w, out.Chart.Supply)
		fmt.Fprintln(w, "\nDemand curve")
		printPoints(w, out.Chart.Demand)
	}
	return nil
}

func printPoints(w io.Writer, points []model.CurvePoint) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUANTITY\tPRICE\tLABEL")
	for _, pt := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", pt.Quantity.StringFixed(1), pt.Price.StringFixed(2), pt.Label)
	}
	tw.Flush()
}
