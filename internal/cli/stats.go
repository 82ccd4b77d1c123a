package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasvrm/previso/internal/core/domain"
	"github.com/lucasvrm/previso/internal/dashboard/stats"
)

var statsRefresh bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show admin usage statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsRefresh, "refresh", false, "ignore the fetch cooldown")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := commandContext(cmd)
	var st *domain.AdminStats
	fetched := true
	if statsRefresh {
		st, err = app.Stats.Refresh(ctx)
	} else {
		st, fetched, err = app.Stats.Load(ctx)
	}
	if err != nil {
		f := stats.Describe(err)
		return fmt.Errorf("%s (%s): %w", f.Message, f.Type, err)
	}

	out := cmd.OutOrStdout()
	if st == nil {
		fmt.Fprintln(out, "Stats were fetched recently; use --refresh to fetch again.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOTAL USERS\tTOTAL CHECK-INS\tFETCHED")
	fmt.Fprintf(w, "%d\t%d\t%s\n", st.TotalUsers, st.TotalCheckins, st.FetchedAt.Format("2006-01-02 15:04:05"))
	if err := w.Flush(); err != nil {
		return err
	}
	if !fetched {
		fmt.Fprintln(out, hintColor.Sprint("(cached)"))
	}
	return nil
}
