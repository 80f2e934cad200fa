package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"github.com/spf13/cobra"
)

type recommendOptions struct {
	keyword       string
	name          string
	email         string
	upper         float64
	lower         float64
	left          float64
	right         float64
	attribute     string
	specialAdjust bool
	jsonOutput    bool
}

var recommendFlags recommendOptions

var scanJSON bool

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print a size recommendation from manual readings or a scan keyword",
	Example: `  sizeadvisor recommend --upper 82 --lower 65 --attribute 外擴
  sizeadvisor recommend --keyword 26020865 --email amy@example.com`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

var scanCmd = &cobra.Command{
	Use:   "scan <keyword>",
	Short: "Resolve the newest scan for an account keyword without matching",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	f := recommendCmd.Flags()
	f.StringVarP(&recommendFlags.keyword, "keyword", "k", "", "Scan account keyword (reads from the TG3D API)")
	f.StringVar(&recommendFlags.name, "name", "", "Customer name for the report greeting")
	f.StringVar(&recommendFlags.email, "email", "", "Send the report to this address")
	f.Float64Var(&recommendFlags.upper, "upper", 0, "Upper bust (cm)")
	f.Float64Var(&recommendFlags.lower, "lower", 0, "Lower bust (cm)")
	f.Float64Var(&recommendFlags.left, "left", 0, "Shoulder-to-nipple length, left (cm)")
	f.Float64Var(&recommendFlags.right, "right", 0, "Shoulder-to-nipple length, right (cm)")
	f.StringVarP(&recommendFlags.attribute, "attribute", "a", "", "Breast-shape attribute (overrides the detected one)")
	f.BoolVar(&recommendFlags.specialAdjust, "special-adjust", false, "Apply the mature-support upper bust adjustment")
	f.BoolVar(&recommendFlags.jsonOutput, "json", false, "Print the full result as JSON")

	recommendCmd.MarkFlagsMutuallyExclusive("keyword", "upper")
	recommendCmd.MarkFlagsMutuallyExclusive("keyword", "lower")

	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the measurement as JSON")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	useScan := recommendFlags.keyword != ""
	if !useScan && (recommendFlags.upper <= 0 || recommendFlags.lower <= 0) {
		return fmt.Errorf("either --keyword or both --upper and --lower are required")
	}

	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, appOptions{withProvider: useScan, withDelivery: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var result *domain.RecommendationResult
	if useScan {
		result, err = a.service.RecommendFromScan(ctx, &domain.ScanRecommendationRequest{
			Keyword:       recommendFlags.keyword,
			Email:         recommendFlags.email,
			Attribute:     recommendFlags.attribute,
			SpecialAdjust: recommendFlags.specialAdjust,
		})
	} else {
		result, err = a.service.Recommend(ctx, &domain.RecommendationRequest{
			Name:                recommendFlags.name,
			Email:               recommendFlags.email,
			UpperBust:           recommendFlags.upper,
			LowerBust:           recommendFlags.lower,
			ShoulderNippleLeft:  recommendFlags.left,
			ShoulderNippleRight: recommendFlags.right,
			Attribute:           recommendFlags.attribute,
			SpecialAdjust:       recommendFlags.specialAdjust,
		})
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if recommendFlags.jsonOutput {
		return writeJSON(out, result)
	}
	if m := result.Measurement; m != nil {
		printMeasurement(out, m)
		fmt.Fprintln(out)
	}
	fmt.Fprint(out, result.Report)
	fmt.Fprintf(out, "\nemail sent: %v, audit logged: %v\n", result.EmailSent, result.AuditLogged)
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, appOptions{withProvider: true})
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.service.LookupScan(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if scanJSON {
		return writeJSON(out, m)
	}
	printMeasurement(out, m)
	return nil
}

func printMeasurement(w io.Writer, m *domain.ResolvedMeasurement) {
	fmt.Fprintf(w, "account:   %s (%s)\n", m.Username, m.DisplayName)
	fmt.Fprintf(w, "scan:      %s\n", m.ScanID)
	fmt.Fprintf(w, "upper:     %.1f cm\n", m.UpperBust)
	fmt.Fprintf(w, "lower:     %.1f cm\n", m.LowerBust)
	fmt.Fprintf(w, "nipple L/R: %.1f / %.1f cm\n", m.ShoulderNippleLeft, m.ShoulderNippleRight)
	fmt.Fprintf(w, "attribute: %s\n", m.DetectedAttribute)
	fmt.Fprintf(w, "tags:      %s\n", strings.Join(m.DisplayTags, ", "))
	if m.Degraded {
		fmt.Fprintf(w, "defaulted: %s\n", strings.Join(m.DefaultedFields, ", "))
		for _, warning := range m.Warnings {
			fmt.Fprintf(w, "warning:   %s\n", warning)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
