package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	logsSupplier  int64
	logsLimit     int
	purgeAll      bool
	purgeDays     int
	reapOlderThan time.Duration
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect and maintain sync logs",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sync logs",
	Args:  cobra.NoArgs,
	RunE:  runLogsList,
}

var logsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old sync logs",
	Args:  cobra.NoArgs,
	RunE:  runLogsPurge,
}

var logsReapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Mark runs that never completed as failed",
	Long: `Mark sync logs still "running" after --older-than as failed.

A run whose process died keeps its log in the running state. Nothing reaps
these automatically.`,
	Args: cobra.NoArgs,
	RunE: runLogsReap,
}

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List recent sync-all batches",
	Args:  cobra.NoArgs,
	RunE:  runBatches,
}

func init() {
	logsListCmd.Flags().Int64VarP(&logsSupplier, "supplier", "s", 0, "only logs of this supplier")
	logsListCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "number of logs to show")
	logsPurgeCmd.Flags().BoolVar(&purgeAll, "all", false, "delete every log")
	logsPurgeCmd.Flags().IntVar(&purgeDays, "older-than-days", 30, "delete logs started before this many days ago")
	logsReapCmd.Flags().DurationVar(&reapOlderThan, "older-than", time.Hour, "minimum age of a running log")
	batchesCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "number of batches to show")

	logsCmd.AddCommand(logsListCmd, logsPurgeCmd, logsReapCmd)
}

func runLogsList(cmd *cobra.Command, args []string) error {
	d, err := engine()
	if err != nil {
		return err
	}
	var supplierID *int64
	if logsSupplier > 0 {
		supplierID = &logsSupplier
	}

	logs, err := d.Repo.Logs.List(cmd.Context(), supplierID, logsLimit)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		pterm.Info.Println("No sync logs")
		return nil
	}

	data := pterm.TableData{{"Started", "Supplier", "Type", "Status", "Processed", "Updated", "Errors"}}
	for _, l := range logs {
		data = append(data, []string{
			l.StartedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.FormatInt(l.SupplierID, 10),
			l.SyncType,
			l.Status,
			strconv.Itoa(l.ProductsProcessed),
			strconv.Itoa(l.ProductsUpdated),
			strconv.Itoa(l.ErrorsCount),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runLogsPurge(cmd *cobra.Command, args []string) error {
	d, err := engine()
	if err != nil {
		return err
	}

	var deleted int64
	if purgeAll {
		deleted, err = d.Repo.Logs.TruncateAll(cmd.Context())
	} else {
		deleted, err = d.Repo.Logs.PurgeOlderThan(cmd.Context(), purgeDays)
	}
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Deleted %d sync log(s)", deleted)
	return nil
}

func runLogsReap(cmd *cobra.Command, args []string) error {
	if reapOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}
	d, err := engine()
	if err != nil {
		return err
	}

	reaped, err := d.Repo.Logs.ReapStale(cmd.Context(), reapOlderThan)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Marked %d abandoned run(s) as failed", reaped)
	return nil
}

func runBatches(cmd *cobra.Command, args []string) error {
	d, err := engine()
	if err != nil {
		return err
	}

	batches, err := d.Repo.Batches.List(cmd.Context(), logsLimit)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		pterm.Info.Println("No sync-all batches")
		return nil
	}

	data := pterm.TableData{{"Started", "Type", "Status", "Synced", "Failed", "Processed", "Updated"}}
	for _, b := range batches {
		data = append(data, []string{
			b.StartedAt.Local().Format("2006-01-02 15:04:05"),
			b.SyncType,
			b.Status,
			strconv.Itoa(b.SuppliersSynced),
			strconv.Itoa(b.SuppliersFailed),
			strconv.Itoa(b.TotalProcessed),
			strconv.Itoa(b.TotalUpdated),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
