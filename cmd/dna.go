package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/genome"
)

var (
	dnaReason string
	dnaFile   string
)

var dnaCmd = &cobra.Command{
	Use:   "dna",
	Short: "Snapshot and restore the genome",
	Long: `DNA snapshots are compressed exports of the whole genome. Save one
before risky experiments, load the latest after a bad run, or restore a
specific file from the history.`,
}

var dnaSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write a snapshot of the current genome",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			path, err := gen.SaveDNA(ctx, dnaReason)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", path)
			return nil
		})
	},
}

var dnaLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Restore the genome from a snapshot",
	Long: `Restore genes and instincts from the latest snapshot, or from a
specific file named with --file. Restoring mutates the live genome;
existing genes are updated, nothing is deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			var (
				snap *genome.Snapshot
				err  error
			)
			if dnaFile != "" {
				snap, err = gen.LoadSnapshot(ctx, dnaFile)
			} else {
				snap, err = gen.LoadDNA(ctx)
			}
			if err != nil {
				return err
			}

			if err := gen.Restore(ctx, snap); err != nil {
				return err
			}
			fmt.Printf("Restored %d genes and %d instincts from %s\n",
				len(snap.Genes), len(snap.Instincts), snap.CreatedAt.Format("2006-01-02 15:04:05"))
			if snap.Reason != "" {
				fmt.Printf("  Snapshot reason: %s\n", snap.Reason)
			}
			return nil
		})
	},
}

var dnaHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			snapshots, err := gen.History(ctx)
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				fmt.Println("No snapshots yet. Run: sharingan dna save")
				return nil
			}
			for _, snap := range snapshots {
				fmt.Printf("%s  %4d genes  %3d instincts  %6.1f KiB  %s\n",
					snap.CreatedAt.Format("2006-01-02 15:04"),
					snap.Genes, snap.Instincts,
					float64(snap.SizeBytes)/1024,
					snap.File)
			}
			return nil
		})
	},
}

func init() {
	dnaSaveCmd.Flags().StringVar(&dnaReason, "reason", "", "note stored inside the snapshot")
	dnaLoadCmd.Flags().StringVar(&dnaFile, "file", "", "snapshot file (default: the latest)")
	dnaCmd.AddCommand(dnaSaveCmd, dnaLoadCmd, dnaHistoryCmd)
	rootCmd.AddCommand(dnaCmd)
}
