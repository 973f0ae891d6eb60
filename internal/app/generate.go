package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/orderwatch/internal/simulate"
)

var (
	genCount     int
	genDays      int
	genSeed      int64
	genMix       string
	genLegacy    float64
	genMalformed float64
	genFormat    string
	genOut       string
	genSeqIDs    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic order history",
	Long: `Write a synthetic order history for demos and testing. A fixed --seed
(together with --now) reproduces the same statuses, dates and totals.

Examples:
  orderwatch generate --count 500 --days 180 --out orders.json
  orderwatch generate --mix delivered=50,cancelled=30,pending=20 --format jsonl
  orderwatch generate --legacy 0.3      # some records use old field spellings`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVar(&genCount, "count", 200, "Number of orders")
	generateCmd.Flags().IntVar(&genDays, "days", 180, "Spread orders over this many days before now")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 1, "Random seed")
	generateCmd.Flags().StringVar(&genMix, "mix", "", "Status weights, e.g. delivered=60,cancelled=10,pending=30")
	generateCmd.Flags().Float64Var(&genLegacy, "legacy", 0, "Share of records in the legacy layout (0-1)")
	generateCmd.Flags().Float64Var(&genMalformed, "malformed", 0, "Share of records with an unparsable created_at (0-1)")
	generateCmd.Flags().StringVar(&genFormat, "format", "json", "Output format: json or jsonl")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "Write to this file instead of stdout")
	generateCmd.Flags().BoolVar(&genSeqIDs, "sequential-ids", false, "Use ord-000001 style ids instead of cuids")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}

	if genLegacy < 0 || genLegacy > 1 || genMalformed < 0 || genMalformed > 1 {
		return fmt.Errorf("--legacy and --malformed must be between 0 and 1")
	}

	opts := simulate.Options{
		Count:          genCount,
		Days:           genDays,
		Now:            env.now(),
		Location:       env.loc,
		Seed:           genSeed,
		LegacyRatio:    genLegacy,
		MalformedRatio: genMalformed,
		SequentialIDs:  genSeqIDs,
	}
	if genMix != "" {
		mix, err := simulate.ParseMix(genMix)
		if err != nil {
			return err
		}
		opts.Mix = mix
	}

	records := simulate.Generate(opts)

	if genOut == "" {
		return simulate.Write(cmd.OutOrStdout(), records, simulate.Format(genFormat))
	}

	f, err := os.Create(genOut)
	if err != nil {
		return fmt.Errorf("creating %s: %w", genOut, err)
	}
	if err := simulate.Write(f, records, simulate.Format(genFormat)); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", genOut, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d orders to %s\n", len(records), genOut)
	return nil
}
