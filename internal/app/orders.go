package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/output"
)

var (
	ordersStatus string
	ordersLimit  int
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List the orders inside the current window",
	Long: `List orders that fall inside the selected time window, newest first.
Orders with a missing or unparsable created_at never appear in any window.`,
	RunE: runOrders,
}

func init() {
	ordersCmd.Flags().StringVar(&ordersStatus, "status", "", "Only show orders with this status (aliases accepted)")
	ordersCmd.Flags().IntVar(&ordersLimit, "limit", 50, "Maximum number of orders to show (0 = all)")
	rootCmd.AddCommand(ordersCmd)
}

func runOrders(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	all, err := env.loadOrders(cmd.Context())
	if err != nil {
		return err
	}

	filtered := insights.Filter(all, env.window, env.now())
	var want order.Status
	if ordersStatus != "" {
		want = order.ParseStatus(ordersStatus)
		if !want.Known() {
			return fmt.Errorf("unknown status %q", ordersStatus)
		}
	}

	list := make([]order.Order, 0, len(filtered))
	for _, o := range filtered {
		if want != order.StatusUnknown && o.Status != want {
			continue
		}
		list = append(list, o)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	total := len(list)
	if ordersLimit > 0 && len(list) > ordersLimit {
		list = list[:ordersLimit]
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, list)
	}

	fmt.Fprintln(out, output.Section(fmt.Sprintf("Orders: %s", env.window.Label())))
	fmt.Fprintln(out)
	tbl := output.NewTable("ID", "Created", "Status", "Total").AlignRight(3)
	for _, o := range list {
		status := o.Status.String()
		tbl.AddRow(o.ID, o.CreatedAt.In(env.loc).Format("2006-01-02 15:04"), status, output.Money(o.Total))
	}
	tbl.Fprint(out)
	fmt.Fprintf(out, "\n %s\n", output.StyleMuted.Render(fmt.Sprintf("showing %d of %d", len(list), total)))
	return nil
}
