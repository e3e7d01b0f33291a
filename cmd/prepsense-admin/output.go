// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// outputFormat is --output when given, otherwise table for a terminal
// and JSON for pipes and files.
func outputFormat(w io.Writer) string {
	if flagOutput != "" {
		return flagOutput
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return outputTable
	}
	return outputJSON
}

// render writes v as indented JSON, or header and rows as a table
func render(w io.Writer, v any, header []string, rows [][]string) error {
	if outputFormat(w) == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()
	return nil
}

// expiryText renders an expiration date relative to now
func expiryText(exp *time.Time, now time.Time) string {
	if exp == nil {
		return "-"
	}
	return exp.Format("2006-01-02") + " (" + humanize.RelTime(*exp, now, "ago", "from now") + ")"
}

func quantityText(q float64, unit string) string {
	return humanize.Ftoa(q) + " " + unit
}
