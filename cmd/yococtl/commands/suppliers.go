package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"yoco/stocksync/internal/models/gorm"
)

// supplierFile is the import/export document:
//
//	suppliers:
//	  - id: 12
//	    name: Groothandel Noord
//	    feed_url: https://example.com/stock.csv
//	    match_column: sku
//	    stock_column: qty
type supplierFile struct {
	Suppliers []yaml.Node `yaml:"suppliers"`
}

var suppliersCmd = &cobra.Command{
	Use:   "suppliers",
	Short: "Manage supplier feed configs",
}

var suppliersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supplier feed configs",
	Args:  cobra.NoArgs,
	RunE:  runSuppliersList,
}

var suppliersImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create or replace supplier feed configs from a YAML file",
	Long: `Create or replace supplier feed configs from a YAML file.

Fields left out of an entry take the defaults of a new supplier
(URL mode, comma delimiter, header row, match on SKU, daily schedule).`,
	Args: cobra.ExactArgs(1),
	RunE: runSuppliersImport,
}

var suppliersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print every supplier feed config as YAML",
	Args:  cobra.NoArgs,
	RunE:  runSuppliersExport,
}

func init() {
	suppliersCmd.AddCommand(suppliersListCmd, suppliersImportCmd, suppliersExportCmd)
}

func runSuppliersList(cmd *cobra.Command, args []string) error {
	d, err := engine()
	if err != nil {
		return err
	}
	configs, err := d.Repo.Configs.ListConfigs(cmd.Context())
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		pterm.Info.Println("No suppliers configured")
		return nil
	}

	data := pterm.TableData{{"ID", "Name", "Source", "Active", "Match", "Schedule", "Next run"}}
	for i := range configs {
		c := &configs[i]
		next := "-"
		if at, err := d.Services.Scheduler.NextRun(cmd.Context(), c.ID); err == nil && at != nil {
			next = at.Local().Format("2006-01-02 15:04")
		}
		data = append(data, []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Source(),
			strconv.FormatBool(c.IsActive && c.Usable()),
			fmt.Sprintf("%s=%s", c.MatchField(), c.MatchColumn),
			fmt.Sprintf("%dx %s", c.UpdateFrequency, strings.Join(c.UpdateTimes, ",")),
			next,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runSuppliersImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	configs, err := decodeSuppliers(raw)
	if err != nil {
		return err
	}

	d, err := engine()
	if err != nil {
		return err
	}
	for _, c := range configs {
		if err := d.Repo.Configs.Save(cmd.Context(), c); err != nil {
			return fmt.Errorf("supplier %d: %w", c.ID, err)
		}
		if !c.Usable() || !c.ColumnsConfigured() {
			pterm.Warning.Printfln("Supplier %d (%s) saved but not ready to sync", c.ID, c.Name)
			continue
		}
		pterm.Success.Printfln("Supplier %d (%s) saved", c.ID, c.Name)
	}
	if err := d.Services.Scheduler.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	return nil
}

// decodeSuppliers applies new-supplier defaults before each entry is decoded over them
func decodeSuppliers(raw []byte) ([]*gorm.SupplierFeedConfig, error) {
	var file supplierFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("invalid supplier file: %w", err)
	}

	configs := make([]*gorm.SupplierFeedConfig, 0, len(file.Suppliers))
	seen := make(map[int64]bool)
	for i := range file.Suppliers {
		node := &file.Suppliers[i]
		var head struct {
			ID   int64  `yaml:"id"`
			Name string `yaml:"name"`
		}
		if err := node.Decode(&head); err != nil {
			return nil, fmt.Errorf("supplier #%d: %w", i+1, err)
		}
		if head.ID <= 0 {
			return nil, fmt.Errorf("supplier #%d: id must be a positive number", i+1)
		}
		if seen[head.ID] {
			return nil, fmt.Errorf("supplier %d listed twice", head.ID)
		}
		seen[head.ID] = true

		c := gorm.NewSupplierFeedConfig(head.ID, head.Name)
		if err := node.Decode(c); err != nil {
			return nil, fmt.Errorf("supplier %d: %w", head.ID, err)
		}
		if _, err := c.DelimiterRune(); err != nil {
			return nil, fmt.Errorf("supplier %d: %w", head.ID, err)
		}
		configs = append(configs, c)
	}
	return configs, nil
}

func runSuppliersExport(cmd *cobra.Command, args []string) error {
	d, err := engine()
	if err != nil {
		return err
	}
	configs, err := d.Repo.Configs.ListConfigs(cmd.Context())
	if err != nil {
		return err
	}

	out := struct {
		Suppliers []gorm.SupplierFeedConfig `yaml:"suppliers"`
	}{Suppliers: configs}
	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
