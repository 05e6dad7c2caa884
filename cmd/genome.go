package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/genome"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

var (
	geneCategory    string
	geneKey         string
	geneData        []string
	geneReason      string
	genePriority    int
	geneMinPriority int
	geneTags        []string
	geneLimit       int
	instinctTrigger string
	instinctReply   string
	instinctCond    string
)

var genomeCmd = &cobra.Command{
	Use:   "genome",
	Short: "Inspect and mutate the learned genome",
	Long: `The genome remembers which tools, flags and targets worked. Genes
carry a success rate and a priority; instincts are learned shortcuts
that answer queries before the language router runs.`,
}

var genomeMutateCmd = &cobra.Command{
	Use:   "mutate",
	Short: "Write or update a gene",
	Long: `Create or update a gene. Repeated --data flags build the gene's
payload; values are stored as strings.

  sharingan genome mutate --category scan_prefs --key nmap_fast \
      --data flags=-T4 --data ports=1-1024 --reason "faster default" --priority 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if geneCategory == "" || geneKey == "" {
			return fmt.Errorf("--category and --key are required")
		}
		pairs, err := parseKeyValues(geneData)
		if err != nil {
			return err
		}
		data := make(map[string]interface{}, len(pairs))
		for k, v := range pairs {
			data[k] = v
		}

		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			gene, err := gen.Mutate(ctx, core.MutateParams{
				Category: geneCategory,
				Key:      geneKey,
				Data:     data,
				Reason:   geneReason,
				Priority: genePriority,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Gene %s/%s now at %d mutations\n", gene.Category, gene.Key, gene.Mutations)
			return nil
		})
	},
}

var genomeFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Search genes by category, priority and tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			genes, err := gen.FindGenes(ctx, geneCategory, geneMinPriority, geneTags)
			if err != nil {
				return err
			}
			if len(genes) == 0 {
				fmt.Println("No matching genes.")
				return nil
			}
			printGenes(genes)
			return nil
		})
	},
}

var genomeBestCmd = &cobra.Command{
	Use:   "best",
	Short: "Show the genes with the best track record",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			genes, err := gen.BestGenes(ctx, geneLimit)
			if err != nil {
				return err
			}
			printGenes(genes)
			return nil
		})
	},
}

var genomeSuccessCmd = &cobra.Command{
	Use:   "success <category> <key>",
	Short: "Record that a gene's approach worked",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			return gen.RecordSuccess(ctx, args[0], args[1])
		})
	},
}

var genomeFailCmd = &cobra.Command{
	Use:   "fail <category> <key>",
	Short: "Record that a gene's approach failed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			return gen.RecordFailure(ctx, args[0], args[1])
		})
	},
}

var genomeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the genome",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			stats, err := gen.Stats(ctx)
			if err != nil {
				return err
			}
			printGenomeStats(stats)
			return nil
		})
	},
}

var genomeOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Prune genes that keep failing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			pruned, err := gen.Optimize(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d underperforming genes\n", pruned)
			return nil
		})
	},
}

var genomeEvolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Cull low priority genes that keep failing despite real use",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			removed, err := gen.Evolve(ctx)
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Println("Every gene holds its place.")
				return nil
			}
			fmt.Println("Evolved away:")
			for _, key := range removed {
				fmt.Printf("  %s\n", key)
			}
			return nil
		})
	},
}

var instinctCmd = &cobra.Command{
	Use:   "instinct",
	Short: "Manage learned query shortcuts",
}

var instinctAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Teach a new instinct",
	Long: `Instincts answer a query directly when its text matches the trigger.
An optional javascript condition gates the match; it sees the query as
the variable "query".

  sharingan genome instinct add --trigger "status" --response "All systems nominal"
  sharingan genome instinct add --trigger "scan home" \
      --response "nmap -T4 192.168.1.0/24" --condition "query.length < 20"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if instinctTrigger == "" || instinctReply == "" {
			return fmt.Errorf("--trigger and --response are required")
		}
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			inst, err := gen.AddInstinct(ctx, instinctTrigger, instinctReply, instinctCond)
			if err != nil {
				return err
			}
			fmt.Printf("Instinct %s armed for %q\n", inst.ID, inst.Trigger)
			return nil
		})
	},
}

var instinctListCmd = &cobra.Command{
	Use:   "list",
	Short: "List instincts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			instincts, err := gen.ListInstincts(ctx)
			if err != nil {
				return err
			}
			if len(instincts) == 0 {
				fmt.Println("No instincts learned yet.")
				return nil
			}
			for _, inst := range instincts {
				state := colorAvailable(inst.Enabled)
				fmt.Printf("%s %-24q → %s (fired %d times)\n", state, inst.Trigger, inst.Response, inst.TriggerCount)
				if inst.Condition != "" {
					fmt.Printf("    when: %s\n", inst.Condition)
				}
			}
			return nil
		})
	},
}

var instinctMatchCmd = &cobra.Command{
	Use:   "match <query>",
	Short: "Test which instinct a query would trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGenome(cmd.Context(), func(ctx context.Context, gen *genome.Store) error {
			inst, err := gen.MatchInstinct(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Matched %q → %s\n", inst.Trigger, inst.Response)
			return nil
		})
	},
}

func init() {
	genomeMutateCmd.Flags().StringVar(&geneCategory, "category", "", "gene category")
	genomeMutateCmd.Flags().StringVar(&geneKey, "key", "", "gene key")
	genomeMutateCmd.Flags().StringArrayVar(&geneData, "data", nil, "payload entry as key=value (repeatable)")
	genomeMutateCmd.Flags().StringVar(&geneReason, "reason", "", "why this mutation happened")
	genomeMutateCmd.Flags().IntVar(&genePriority, "priority", 0, "gene priority")

	genomeFindCmd.Flags().StringVar(&geneCategory, "category", "", "filter by category")
	genomeFindCmd.Flags().IntVar(&geneMinPriority, "min-priority", 0, "minimum priority")
	genomeFindCmd.Flags().StringSliceVar(&geneTags, "tag", nil, "require a tags entry in the payload")

	genomeBestCmd.Flags().IntVar(&geneLimit, "limit", 10, "how many genes to show")

	instinctAddCmd.Flags().StringVar(&instinctTrigger, "trigger", "", "text that fires the instinct")
	instinctAddCmd.Flags().StringVar(&instinctReply, "response", "", "what the instinct answers")
	instinctAddCmd.Flags().StringVar(&instinctCond, "condition", "", "optional javascript gate")

	instinctCmd.AddCommand(instinctAddCmd, instinctListCmd, instinctMatchCmd)
	genomeCmd.AddCommand(
		genomeMutateCmd, genomeFindCmd, genomeBestCmd,
		genomeSuccessCmd, genomeFailCmd, genomeStatsCmd,
		genomeOptimizeCmd, genomeEvolveCmd, instinctCmd,
	)
	rootCmd.AddCommand(genomeCmd)
}

// withGenome opens the store, runs fn and closes it again.
func withGenome(ctx context.Context, fn func(context.Context, *genome.Store) error) error {
	gen, err := genome.New(cfg.Genome, log)
	if err != nil {
		return fmt.Errorf("failed to open genome: %w", err)
	}
	defer gen.Close()
	return fn(ctx, gen)
}

func printGenes(genes []*types.Gene) {
	for _, gene := range genes {
		rate := fmt.Sprintf("%.0f%%", gene.SuccessRate*100)
		switch {
		case gene.SuccessRate >= 0.8:
			rate = color.New(color.FgGreen).Sprint(rate)
		case gene.SuccessRate < 0.4 && gene.UsageCount > 0:
			rate = color.New(color.FgRed).Sprint(rate)
		}
		fmt.Printf("%-14s %-20s p%-3d %s success, used %d times\n",
			gene.Category, gene.Key, gene.Priority, rate, gene.UsageCount)
		if len(gene.Data) > 0 {
			if blob, err := json.Marshal(gene.Data); err == nil {
				fmt.Printf("    %s\n", blob)
			}
		}
	}
}

func printGenomeStats(stats *types.GenomeStats) {
	color.New(color.Bold).Println("Genome")
	fmt.Printf("  Genes:     %d\n", stats.TotalGenes)
	fmt.Printf("  Instincts: %d\n", stats.TotalInstincts)
	fmt.Printf("  Mutations: %d\n", stats.TotalMutations)
	fmt.Printf("  Avg success: %.0f%%\n", stats.AvgSuccessRate*100)
	if len(stats.MostUsed) > 0 {
		fmt.Printf("  Most used: %s\n", strings.Join(stats.MostUsed, ", "))
	}
	if len(stats.ByCategory) > 0 {
		fmt.Println("  By category:")
		categories := make([]string, 0, len(stats.ByCategory))
		for category := range stats.ByCategory {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			fmt.Printf("    %-16s %d\n", category, stats.ByCategory[category])
		}
	}
}
