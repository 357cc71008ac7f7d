package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/listforge/listforge/internal/daemon"
	"github.com/listforge/listforge/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(voucherCmd)
	voucherCmd.AddCommand(voucherMintCmd)
	voucherCmd.AddCommand(voucherListCmd)

	voucherMintCmd.Flags().Int64("amount", 0, "Credit value of each voucher")
	voucherMintCmd.Flags().Int("count", 1, "Number of vouchers to mint")
	voucherMintCmd.MarkFlagRequired("amount")

	voucherListCmd.Flags().Bool("all", false, "Include consumed vouchers")
}

var voucherCmd = &cobra.Command{
	Use:   "voucher",
	Short: "Manage credit vouchers",
	Long: `Mint and inspect credit vouchers. Vouchers are the only way credits
enter the system; each code is single-use.`,
}

// openStore opens the ledger database from the configured location.
func openStore() (*sqlite.DB, error) {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return nil, err
	}
	return sqlite.Open(cfg.Store.Path)
}

// ─── voucher mint ───────────────────────────────────────────────────────────

var voucherMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint new voucher codes",
	Long:  `Mint one or more single-use voucher codes worth --amount credits each.`,
	RunE:  runVoucherMint,
}

func runVoucherMint(cmd *cobra.Command, args []string) error {
	amount, _ := cmd.Flags().GetInt64("amount")
	count, _ := cmd.Flags().GetInt("count")
	if amount <= 0 {
		return fmt.Errorf("--amount must be positive, got %d", amount)
	}
	if count <= 0 || count > 1000 {
		return fmt.Errorf("--count must be between 1 and 1000, got %d", count)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	for i := 0; i < count; i++ {
		code := newVoucherCode()
		if err := db.InsertVoucher(cmd.Context(), code, amount); err != nil {
			return fmt.Errorf("mint voucher: %w", err)
		}
		fmt.Fprintln(os.Stdout, code)
	}
	fmt.Fprintf(os.Stderr, "Minted %d voucher(s) worth %d credits each.\n", count, amount)
	return nil
}

// newVoucherCode returns a fresh code like LF-5A3F0C9E-1B2D4E6F.
func newVoucherCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("LF-%s-%s", raw[:8], raw[8:16])
}

// ─── voucher list ───────────────────────────────────────────────────────────

var voucherListCmd = &cobra.Command{
	Use:   "list",
	Short: "List voucher codes",
	Long:  `List outstanding vouchers. Use --all to include consumed codes.`,
	RunE:  runVoucherList,
}

func runVoucherList(cmd *cobra.Command, args []string) error {
	includeConsumed, _ := cmd.Flags().GetBool("all")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	vouchers, err := db.ListVouchers(cmd.Context(), includeConsumed)
	if err != nil {
		return fmt.Errorf("list vouchers: %w", err)
	}
	if len(vouchers) == 0 {
		fmt.Fprintln(os.Stdout, "No vouchers.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tAMOUNT\tSTATUS\tCONSUMED BY")
	for _, v := range vouchers {
		status := "available"
		consumedBy := ""
		if v.Consumed {
			status = "consumed"
			consumedBy = v.ConsumedBy
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", v.Code, v.Amount, status, consumedBy)
	}
	return tw.Flush()
}
