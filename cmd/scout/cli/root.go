package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/scout/internal/agent"
	"github.com/felixgeelhaar/scout/internal/brief"
	"github.com/felixgeelhaar/scout/internal/config"
	"github.com/felixgeelhaar/scout/internal/observe"
	"github.com/felixgeelhaar/scout/internal/plugin"
	"github.com/felixgeelhaar/scout/internal/provider"
	"github.com/felixgeelhaar/scout/internal/search"
	"github.com/felixgeelhaar/scout/internal/store"
	"github.com/felixgeelhaar/scout/internal/ui"
	"github.com/felixgeelhaar/scout/internal/ui/tui"
)

var (
	verbose       bool
	providerType  string
	modelName     string
	briefPath     string
	searchPlugin  string
	maxIterations int
	ciMode        bool
	interactive   bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Iterative research assistant",
	Long: `Scout researches a question iteratively: it plans searches, gathers
evidence, stores findings in long-term memory, and synthesizes a cited report.`,
}

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Research a question and produce a report",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		runSession(query)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List past research runs",
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		runs, err := s.ListRuns(20)
		if err != nil {
			fmt.Printf("Failed to list runs: %v\n", err)
			os.Exit(1)
		}
		if len(runs) == 0 {
			fmt.Println("No runs yet.")
			return
		}
		for _, r := range runs {
			query := truncate(r.Query, 57)
			fmt.Printf("%s  %-7s  %s  %s\n",
				r.ID, r.Status, r.CreatedAt.Format("2006-01-02 15:04"), query)
		}
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(listCmd)
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	runCmd.Flags().StringVarP(&providerType, "provider", "p", "", "AI provider (anthropic, openai, gemini, ollama, cli)")
	runCmd.Flags().StringVarP(&modelName, "model", "m", "", "Model name (default depends on provider)")
	runCmd.Flags().StringVarP(&briefPath, "brief", "b", "", "Research brief file (.yaml or .json) instead of a bare query")
	runCmd.Flags().StringVar(&searchPlugin, "search-plugin", "", "Path to an external search plugin binary")
	runCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Override the iteration budget")
	runCmd.Flags().BoolVar(&ciMode, "ci", false, "CI mode: JSON logs, non-interactive")
	runCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start interactive TUI")
}

func runSession(query string) {
	var obs *observe.Observer
	if ciMode {
		obs = observe.NewJSON(os.Stdout, verbose)
	} else {
		obs = observe.New(os.Stdout, verbose)
	}
	defer obs.Close()

	settings := config.Load()
	if providerType != "" {
		settings.Provider = providerType
	}
	if modelName != "" {
		settings.Model = modelName
	}
	if maxIterations > 0 {
		settings.MaxIterations = maxIterations
	}

	// A brief file replaces the bare query and may tighten the budget.
	var b *brief.Brief
	if briefPath != "" {
		loaded, err := brief.Load(briefPath)
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to load brief")
		}
		validation := loaded.Validate()
		for _, w := range validation.Warnings {
			obs.Log().Warn().Str("warning", w).Msg("brief lint")
		}
		if !validation.Valid {
			obs.Log().Fatal().
				Str("errors", strings.Join(validation.Errors, ", ")).
				Msg("Invalid brief")
		}
		if loaded.MaxIterations > 0 {
			settings.MaxIterations = loaded.MaxIterations
		}
		b = loaded
		query = b.Prompt()
	}

	if strings.TrimSpace(query) == "" {
		obs.Log().Fatal().Msg("No query given: pass one as an argument or use --brief")
	}

	if err := settings.Bootstrap(); err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to prepare data directory")
	}

	storeLayer, err := store.NewSQLiteStore(settings.DatabasePath, settings.ReportDir)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to init store")
	}
	defer storeLayer.Close()

	// Keys configured via `scout config set` fill in for missing env vars.
	fillCredentials(&settings, storeLayer)
	if err := settings.Validate(); err != nil {
		obs.Log().Fatal().Err(err).Msg("Invalid configuration")
	}

	p, err := buildProvider(settings, storeLayer)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to initialize provider")
	}

	sp, cleanup, err := buildSearch(settings)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to initialize search")
	}
	defer cleanup()

	runner := NewRunner(obs, storeLayer, p, sp, settings)

	if interactive && !ciMode {
		model := tui.NewModel(query, settings.MaxIterations)
		program := tea.NewProgram(model)
		u := tui.NewTUI(program)

		go func() {
			_ = runner.Run(context.Background(), query, ui.Sink(u))
			program.Quit()
		}()

		if _, err := program.Run(); err != nil {
			fmt.Printf("Alas, there's been an error: %v", err)
			os.Exit(1)
		}
	} else {
		// Progress flows through a bounded stream; a lagging logger
		// never stalls the research loop.
		stream := agent.NewStream(64)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for u := range stream.Updates() {
				obs.Log().Info().
					Str("step", string(u.Step)).
					Int("iteration", u.Iteration).
					Str("detail", u.State.CurrentStep).
					Msg("research progress")
			}
		}()

		err := runner.Run(context.Background(), query, stream)
		<-done
		if err != nil {
			os.Exit(1)
		}
	}
}

func fillCredentials(s *config.Settings, storeLayer store.Storage) {
	if s.AnthropicAPIKey == "" {
		s.AnthropicAPIKey = configValue(storeLayer, "anthropic.api_key")
	}
	if s.OpenAIAPIKey == "" {
		s.OpenAIAPIKey = configValue(storeLayer, "openai.api_key")
	}
	if s.GeminiAPIKey == "" {
		s.GeminiAPIKey = configValue(storeLayer, "gemini.api_key")
	}
	if s.TavilyAPIKey == "" {
		s.TavilyAPIKey = configValue(storeLayer, "tavily.api_key")
	}
}

func buildProvider(settings config.Settings, storeLayer store.Storage) (provider.Provider, error) {
	switch settings.Provider {
	case "anthropic":
		return provider.NewAnthropicProvider(settings.AnthropicAPIKey, settings.Model)
	case "openai":
		baseURL, _ := storeLayer.GetConfig("openai.base_url")
		return provider.NewOpenAIProvider(settings.OpenAIAPIKey, baseURL, settings.Model)
	case "gemini":
		return provider.NewGeminiProvider(settings.GeminiAPIKey, settings.Model)
	case "ollama":
		return provider.NewOllamaProvider(settings.Model)
	case "cli":
		return detectCLIProvider(storeLayer)
	case "stub":
		return provider.NewStubProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", settings.Provider)
	}
}

// detectCLIProvider resolves a local agent binary: an explicit path from
// the config table wins, otherwise common tools on PATH are tried.
func detectCLIProvider(s store.Storage) (provider.Provider, error) {
	cliPath, _ := s.GetConfig("provider.cli.path")
	if cliPath != "" {
		return provider.NewCLIProvider(cliPath, []string{})
	}

	tools := []string{"claude", "codex", "gemini", "llm"}
	for _, t := range tools {
		path, err := exec.LookPath(t)
		if err == nil {
			return provider.NewCLIProvider(path, []string{})
		}
	}

	return nil, fmt.Errorf("no local CLI agents detected (tried claude, codex, gemini, llm)")
}

// buildSearch picks the web search backend: an external plugin when one
// is given, Tavily when a key is configured, DuckDuckGo otherwise.
func buildSearch(settings config.Settings) (search.Provider, func(), error) {
	if searchPlugin != "" {
		p, err := plugin.Open(searchPlugin)
		if err != nil {
			return nil, func() {}, err
		}
		return p, p.Close, nil
	}
	if settings.Provider == "stub" {
		// Keep stub runs offline end to end.
		return &search.StubProvider{Results: []search.Result{
			{Title: "Example", URL: "https://example.com", Snippet: "Example result"},
		}}, func() {}, nil
	}
	if settings.TavilyAPIKey != "" {
		return search.NewTavily(settings.TavilyAPIKey), func() {}, nil
	}
	return search.NewDuckDuckGo(), func() {}, nil
}
