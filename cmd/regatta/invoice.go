package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	svc "github.com/joseph-ayodele/regatta-tracker/internal/server"
)

var invoiceJSON bool

var invoiceCmd = &cobra.Command{
	Use:   "invoice <invoice.pdf>",
	Short: "Read the total amount from an entry-fee invoice",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoice,
}

func init() {
	invoiceCmd.Flags().BoolVar(&invoiceJSON, "json", false, "print the raw result as JSON")
	rootCmd.AddCommand(invoiceCmd)
}

func runInvoice(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pdf, err := readPDF(args[0])
	if err != nil {
		return err
	}
	req := svc.InvoiceRequest{PDFBase64: pdf}
	if err := req.Validate(); err != nil {
		return err
	}

	x, err := newExtractor(ctx)
	if err != nil {
		return err
	}
	defer x.Close()

	progress := newOCRProgress(cmd.ErrOrStderr())
	resp, err := x.ExtractInvoice(ctx, req, progress.update)
	progress.finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if invoiceJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	res := resp.Result
	if res.Success {
		good.Fprintf(out, "%.2f %s\n", res.Amount, res.Currency)
		if len(res.Candidates) > 1 {
			var seen []string
			for _, c := range res.Candidates {
				seen = append(seen, fmt.Sprintf("%.2f", c.Value))
			}
			faint.Fprintf(out, "candidates %s\n", strings.Join(seen, ", "))
		}
	} else {
		bad.Fprintln(out, "no amount found")
		if res.Feedback != "" {
			warn.Fprintln(out, res.Feedback)
		}
	}
	faint.Fprintf(out, "method %s\n", res.Method)
	return nil
}
