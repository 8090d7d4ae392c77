// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fileshare/lib/folder"
	"github.com/bureau-foundation/fileshare/lib/process"
	"github.com/bureau-foundation/fileshare/lib/record"
	"github.com/bureau-foundation/fileshare/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

// fileReport describes one file in the folder.
type fileReport struct {
	Name        string `json:"name"`
	Owned       bool   `json:"owned_by_this_machine"`
	Valid       bool   `json:"valid"`
	Participant string `json:"participant,omitempty"`
	Version     string `json:"version,omitempty"`
	Compression string `json:"compression,omitempty"`
	StateBytes  int    `json:"state_bytes,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func run(args []string, out io.Writer) error {
	var jsonOutput bool
	var participant string
	flagSet := pflag.NewFlagSet("fileshare-inspect", pflag.ContinueOnError)
	flagSet.BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
	flagSet.StringVar(&participant, "participant", "", "mark this participant's primary file as owned")
	flagSet.Bool("version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if printVersion, _ := flagSet.GetBool("version"); printVersion {
		version.Print("fileshare-inspect")
		return nil
	}
	if flagSet.NArg() != 1 {
		return errors.New("usage: fileshare-inspect [--json] [--participant ID] <folder>")
	}

	reports, err := inspect(flagSet.Arg(0), participant)
	if err != nil {
		return err
	}
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(reports)
	}
	return printTable(out, reports)
}

// inspect reports on every candidate file in dir.
func inspect(dir, participant string) ([]fileReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading folder: %w", err)
	}
	layout := folder.Layout{Dir: dir, ParticipantID: participant}

	var reports []fileReport
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !folder.IsCandidate(name) {
			continue
		}
		report := fileReport{Name: name, Owned: layout.IsOwned(name)}

		rec, err := folder.ReadRecord(filepath.Join(dir, name))
		if err != nil {
			report.Reason = err.Error()
			reports = append(reports, report)
			continue
		}
		report.Valid = true
		report.Participant = rec.ParticipantID
		report.Version = rec.Version
		report.Compression = string(rec.Compression)
		report.StateBytes = len(rec.State)
		report.Checksum = record.Checksum(rec.State)
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	return reports, nil
}

func printTable(out io.Writer, reports []fileReport) error {
	tw := tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "FILE\tPARTICIPANT\tVERSION\tCOMPRESSION\tSTATE\tSTATUS")
	for _, report := range reports {
		status := "ok"
		if report.Owned {
			status = "ok (own)"
		}
		if !report.Valid {
			status = "skipped: " + report.Reason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			report.Name, report.Participant, report.Version, report.Compression, report.StateBytes, status)
	}
	return tw.Flush()
}
