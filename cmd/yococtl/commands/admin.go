package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"yoco/stocksync/internal/common"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/db"
)

var (
	withCatalog  bool
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the engine tables",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token",
	Long: `Issue a signed API token for the /api/v1 routes.

Operators can run syncs and read state. Admins can also toggle product
sync and purge logs.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	migrateCmd.Flags().BoolVar(&withCatalog, "catalog", false, "also create the catalog tables (standalone installs)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "who the token is for")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(constants.RoleOperator), "operator or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	d, err := engine()
	if err != nil {
		return err
	}
	if err := db.Migrate(d.ORM); err != nil {
		return err
	}
	pterm.Success.Println("Engine tables migrated")

	if withCatalog {
		if err := db.CreateCatalogSchema(cmd.Context(), d.Catalog); err != nil {
			return err
		}
		pterm.Success.Println("Catalog tables created")
	}
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	if cfg.API.JWTSecret == "" {
		return fmt.Errorf("api.jwt_secret is not configured")
	}
	role := constants.APIRole(tokenRole)
	if role != constants.RoleOperator && role != constants.RoleAdmin {
		return fmt.Errorf("unknown role %q", tokenRole)
	}

	token, err := common.NewTokenSigner([]byte(cfg.API.JWTSecret)).Issue(tokenSubject, role, tokenTTL)
	if err != nil {
		return err
	}
	pterm.Info.Printfln("%s token for %s, valid until %s", role, tokenSubject, time.Now().Add(tokenTTL).Format(time.RFC3339))
	fmt.Println(token)
	return nil
}
