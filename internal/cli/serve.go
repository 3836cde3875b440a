package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hamza/chilltutor/internal/agent"
	"github.com/hamza/chilltutor/internal/gateway"
	"github.com/hamza/chilltutor/internal/governance"
	"github.com/hamza/chilltutor/internal/observability"
	"github.com/hamza/chilltutor/internal/store"
	"github.com/hamza/chilltutor/pkg/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tutoring agent",
		Long:  "Start the Telegram gateway and serve tutoring conversations until interrupted.",
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig(configPath)

	tgCfg, ok := cfg.GetTelegramConfig()
	if !ok {
		log.Fatal("Telegram gateway is not enabled or token is missing")
	}

	st, err := store.NewTutorStore(cfg.Tutor.DBPath)
	if err != nil {
		log.Fatal(err)
	}

	prompts := agent.NewPromptManager(cfg.App.Prompts)
	gov := governance.NewDefaultPolicyEngine()
	// Default safety rules: the planner must never rewrite the topic
	// catalogue or the raw conversation history.
	gov.DenyField("topics")
	gov.DenyField("messages")
	gov.DenyField("current_plan")
	gov.DenyField("previous_plan")

	logger := observability.NewLogger()

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	switch pName {
	case "openai", "openrouter", "groq":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in serve", pName)
	}

	if err != nil {
		log.Fatal(err)
	}

	orch := agent.NewOrchestrator(llm, st, gov, prompts, logger)

	var messenger gateway.Messenger
	messenger, err = gateway.NewTelegramGateway(tgCfg.Token, orch, st)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
			}
		}
	}()

	// Start Gateway in a goroutine so we can wait for context in the main loop
	go func() {
		if err := messenger.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop() // stop caller if gateway dies
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	if err := messenger.Stop(); err != nil {
		log.Printf("Error stopping gateway: %v", err)
	}

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}
