package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/regatta-tracker/internal/core"
	"github.com/joseph-ayodele/regatta-tracker/internal/export"
	svc "github.com/joseph-ayodele/regatta-tracker/internal/server"
)

var (
	extractSail   string
	extractSailor string
	extractClass  string
	extractJSON   bool
	extractRoster string
)

var extractCmd = &cobra.Command{
	Use:   "extract <results.pdf>",
	Short: "Find a sail number's placement in a regatta result list",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractSail, "sail", "s", "", "sail number to look for, e.g. \"GER 12345\" (required)")
	extractCmd.Flags().StringVar(&extractSailor, "sailor", "", "sailor name, used only to fill a missing crew")
	extractCmd.Flags().StringVar(&extractClass, "class", "", "boat class, used only when the document names none")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the raw result as JSON")
	extractCmd.Flags().StringVar(&extractRoster, "roster", "", "also write the full result table to this XLSX file")
	_ = extractCmd.MarkFlagRequired("sail")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pdf, err := readPDF(args[0])
	if err != nil {
		return err
	}
	req := svc.RegattaRequest{PDFBase64: pdf, SailNumber: extractSail, SailorName: extractSailor, BoatClass: extractClass}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	x, err := newExtractor(ctx)
	if err != nil {
		return err
	}
	defer x.Close()

	progress := newOCRProgress(cmd.ErrOrStderr())
	resp, err := x.ExtractRegatta(ctx, req, progress.update)
	progress.finish()
	if err != nil {
		return err
	}

	if extractRoster != "" {
		b, err := export.RosterWorkbook(resp.Result)
		if err != nil {
			return fmt.Errorf("build roster: %w", err)
		}
		if err := os.WriteFile(extractRoster, b, 0o644); err != nil {
			return err
		}
	}

	if extractJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printRegatta(cmd, req.SailNumber, resp)
	return nil
}

func printRegatta(cmd *cobra.Command, sail string, resp core.RegattaResponse) {
	out := cmd.OutOrStdout()
	res := resp.Result

	headline.Fprintln(out, res.Metadata.Name)
	var facts []string
	if res.Metadata.Date != "" {
		facts = append(facts, res.Metadata.Date)
	}
	if res.Metadata.BoatClass != "" {
		facts = append(facts, res.Metadata.BoatClass)
	}
	if res.Metadata.RaceCount > 0 {
		facts = append(facts, fmt.Sprintf("%d races", res.Metadata.RaceCount))
	}
	if res.Metadata.TotalParticipants > 0 {
		facts = append(facts, fmt.Sprintf("%d boats", res.Metadata.TotalParticipants))
	}
	if len(facts) > 0 {
		faint.Fprintln(out, strings.Join(facts, " · "))
	}
	fmt.Fprintln(out)

	if p := res.Participant; p != nil {
		fmt.Fprintf(out, "%s  ", p.SailNumber)
		good.Fprintf(out, "rank %d", p.Rank)
		if res.Metadata.TotalParticipants > 0 {
			fmt.Fprintf(out, " of %d", res.Metadata.TotalParticipants)
		}
		fmt.Fprintln(out)
		if p.Name != "" {
			fmt.Fprintf(out, "name   %s\n", p.Name)
		}
		if res.Crew != "" {
			fmt.Fprintf(out, "crew   %s\n", res.Crew)
		}
	} else {
		bad.Fprintf(out, "%s not found\n", sail)
	}

	fmt.Fprint(out, "confidence ")
	confidenceColor(res.Confidence).Fprintln(out, res.Confidence)
	if res.Feedback != "" {
		warn.Fprintln(out, res.Feedback)
	}
	details := []string{"method " + string(res.Method)}
	if res.OCRQuality > 0 {
		details = append(details, fmt.Sprintf("ocr quality %.2f", res.OCRQuality))
	}
	if resp.Cached {
		details = append(details, "cached")
	}
	if len(res.Issues) > 0 {
		details = append(details, "issues "+strings.Join(res.Issues, ","))
	}
	faint.Fprintln(out, strings.Join(details, " · "))
	if verbose {
		for _, t := range res.Trace {
			faint.Fprintln(out, "  "+t)
		}
	}
}
