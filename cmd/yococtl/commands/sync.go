package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/jobs"
	"yoco/stocksync/internal/models/dtos"
)

var freshFeeds bool

var syncCmd = &cobra.Command{
	Use:   "sync <supplier-id>",
	Short: "Sync one supplier now",
	Args:  cobra.ExactArgs(1),
	RunE:  runSync,
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Sync every active supplier in sequence",
	Args:  cobra.NoArgs,
	RunE:  runSyncAll,
}

var testFeedCmd = &cobra.Command{
	Use:   "test-feed <supplier-id>",
	Short: "Download a supplier feed and preview its columns",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestFeed,
}

var checkStockCmd = &cobra.Command{
	Use:   "check-stock <product-id>",
	Short: "Look a product up in each of its supplier feeds",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckStock,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <product-id>",
	Short: "Recompute the backorder state of a product from stored supplier stock",
	Args:  cobra.ExactArgs(1),
	RunE:  runReconcile,
}

func init() {
	syncAllCmd.Flags().BoolVar(&freshFeeds, "fresh", false, "clear cached feeds before syncing")
}

func runSync(cmd *cobra.Command, args []string) error {
	supplierID, err := parseID(args[0], "supplier")
	if err != nil {
		return err
	}
	d, err := engine()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Syncing supplier %d...", supplierID))
	result, err := d.Services.Sync.RunSync(ctx, supplierID, constants.TriggerManual)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	if result.Failed() {
		spinner.Fail(fmt.Sprintf("Supplier %d: %s", supplierID, result.Error))
	} else {
		spinner.Success(fmt.Sprintf("Supplier %d synced", supplierID))
	}
	printResults(result)
	if result.Failed() {
		return fmt.Errorf("sync %s", result.Status)
	}
	return nil
}

func runSyncAll(cmd *cobra.Command, args []string) error {
	d, err := engine()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	spinner, _ := pterm.DefaultSpinner.Start("Syncing all active suppliers...")
	summary, err := d.Services.Sync.RunAll(ctx, constants.TriggerManual, jobs.RunAllOptions{FreshFeeds: freshFeeds})
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	msg := fmt.Sprintf("%d synced, %d failed", summary.SuppliersSynced, summary.SuppliersFailed)
	if summary.SuppliersFailed > 0 {
		spinner.Warning(msg)
	} else {
		spinner.Success(msg)
	}
	printResults(summary.Results...)
	pterm.Info.Printfln("Processed %d products, updated %d", summary.TotalProcessed, summary.TotalUpdated)
	if summary.SuppliersFailed > 0 {
		return fmt.Errorf("%d supplier(s) failed", summary.SuppliersFailed)
	}
	return nil
}

func printResults(results ...*dtos.SyncResult) {
	data := pterm.TableData{{"Supplier", "Status", "Processed", "Updated", "Errors", "Duration"}}
	for _, r := range results {
		name := strconv.FormatInt(r.SupplierID, 10)
		if r.SupplierName != "" {
			name = fmt.Sprintf("%s (%d)", r.SupplierName, r.SupplierID)
		}
		data = append(data, []string{
			name,
			string(r.Status),
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Updated),
			strconv.Itoa(len(r.Errors)),
			fmt.Sprintf("%dms", r.DurationMs),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	for _, r := range results {
		for _, msg := range r.Errors {
			pterm.Warning.Printfln("supplier %d: %s", r.SupplierID, msg)
		}
	}
}

func runTestFeed(cmd *cobra.Command, args []string) error {
	supplierID, err := parseID(args[0], "supplier")
	if err != nil {
		return err
	}
	d, err := engine()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	preview, err := d.Services.Sync.TestFeed(ctx, supplierID)
	if err != nil {
		return err
	}

	pterm.DefaultSection.Println("Feed " + preview.Source)
	pterm.Info.Printfln("Rows: %d (skipped %d), size: %d bytes", preview.RowCount, preview.Skipped, preview.FileSize)
	if preview.DetectedDelimiter != preview.ConfiguredDelimiter {
		pterm.Warning.Printfln("Configured delimiter %q, feed looks like %q", preview.ConfiguredDelimiter, preview.DetectedDelimiter)
	}

	data := pterm.TableData{preview.Columns}
	for _, row := range preview.SampleRows {
		data = append(data, row)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runCheckStock(cmd *cobra.Command, args []string) error {
	entryID, err := parseID(args[0], "product")
	if err != nil {
		return err
	}
	d, err := engine()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	check, err := d.Services.Sync.CheckProduct(ctx, entryID)
	if err != nil {
		return err
	}

	data := pterm.TableData{{"Supplier", "Quantity", "Available", "Error"}}
	for _, r := range check.Results {
		data = append(data, []string{
			fmt.Sprintf("%s (%d)", r.SupplierName, r.SupplierID),
			strconv.Itoa(r.Quantity),
			strconv.FormatBool(r.Available),
			r.Error,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if check.Reconciled {
		pterm.Success.Printfln("Product %d stock state updated", entryID)
	} else {
		pterm.Info.Printfln("Product %d stock state unchanged", entryID)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	entryID, err := parseID(args[0], "product")
	if err != nil {
		return err
	}
	d, err := engine()
	if err != nil {
		return err
	}

	changed, err := d.Services.Backorder.Reconcile(cmd.Context(), entryID)
	if err != nil {
		return err
	}
	entry, err := d.Repo.Catalog.GetEntry(cmd.Context(), entryID)
	if err != nil {
		return err
	}
	state := "unchanged"
	if changed {
		state = "updated"
	}
	pterm.Success.Printfln("Product %d %s: %s", entryID, state,
		strings.Join([]string{string(entry.StockStatus), string(entry.Backorders), entry.DeliveryText}, " / "))
	return nil
}
