package options

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
)

// ReportPrinter writes a command result.
type ReportPrinter func(v interface{}) error

func DiscardReportPrinter(interface{}) error {
	return nil
}

var _ ReportPrinter = DiscardReportPrinter

func JSONReportPrinter(w io.Writer) ReportPrinter {
	return func(v interface{}) error {
		reportJSON, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(reportJSON)); err != nil {
			return err
		}
		return nil
	}
}

func YAMLReportPrinter(w io.Writer) ReportPrinter {
	return func(v interface{}) error {
		reportYaml, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprint(w, string(reportYaml)); err != nil {
			return err
		}
		return nil
	}
}

// OutputOptions selects how a command prints its result
type OutputOptions struct {
	Output string

	Printer ReportPrinter
}

// Complete picks the printer for the output format.
func (o *OutputOptions) Complete(w io.Writer) error {
	if o.Printer != nil {
		return nil
	}
	switch o.Output {
	case "", "json":
		o.Printer = JSONReportPrinter(w)
	case "yaml":
		o.Printer = YAMLReportPrinter(w)
	case "none":
		o.Printer = DiscardReportPrinter
	default:
		return fmt.Errorf("%w: unknown output format %q", errdefs.ErrConfiguration, o.Output)
	}
	return nil
}
