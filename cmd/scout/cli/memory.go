package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/scout/internal/config"
	"github.com/felixgeelhaar/scout/internal/memory"
	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage long-term memory",
}

var memoryN int

var memorySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored memories by semantic similarity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := config.Load()
		if err := settings.Validate(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		s := getStore()
		defer s.Close()

		p, err := buildProvider(settings, s)
		if err != nil {
			fmt.Printf("Failed to initialize provider: %v\n", err)
			os.Exit(1)
		}

		mem := memory.NewVectorMemory(s, p)
		items, err := mem.Search(context.Background(), args[0], memoryN)
		if err != nil {
			fmt.Printf("Memory search failed: %v\n", err)
			os.Exit(1)
		}

		if len(items) == 0 {
			fmt.Println("No memories found.")
			return
		}
		for _, item := range items {
			fmt.Printf("%s  (relevance %.2f)\n  %s\n", item.ID, item.Similarity, item.Content)
		}
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored memories",
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		n, err := s.ClearMemory()
		if err != nil {
			fmt.Printf("Failed to clear memory: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cleared %d memories.\n", n)
	},
}

func init() {
	RootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryClearCmd)
	memorySearchCmd.Flags().IntVarP(&memoryN, "results", "n", 5, "Number of results")
}
