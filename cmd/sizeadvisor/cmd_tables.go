package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Inspect the lookup tables",
}

var tablesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load every table and report skipped rows and orphan groups",
	Args:  cobra.NoArgs,
	RunE:  runTablesCheck,
}

var strictCheck bool

func init() {
	tablesCheckCmd.Flags().BoolVar(&strictCheck, "strict", false, "Exit non-zero when any issue is found")
	tablesCmd.AddCommand(tablesCheckCmd)
}

func runTablesCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	loader, memoryCache := newTableLoader(cfg, logger)
	defer memoryCache.Close()

	catalog, issues, err := loadCatalog(cmd.Context(), cfg, loader, memoryCache, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "size rows:      %d\n", len(catalog.Sizes))
	fmt.Fprintf(out, "product rows:   %d\n", len(catalog.Products))
	fmt.Fprintf(out, "attribute rows: %d\n", len(catalog.Attributes))
	fmt.Fprintf(out, "product urls:   %d\n", len(catalog.ProductURLs))

	if len(issues) == 0 {
		fmt.Fprintln(out, "no issues")
		return nil
	}
	fmt.Fprintf(out, "%d issue(s):\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(out, "  - %s\n", issue)
	}
	if strictCheck {
		return fmt.Errorf("%d table issue(s)", len(issues))
	}
	return nil
}
