package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hamza/chilltutor/internal/store"
	"github.com/hamza/chilltutor/pkg/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load topics and flashcards into the database",
		Long:  "Load topics and flashcards from the YAML seed file into the SQLite database. Safe to run repeatedly.",
		Run:   runSeed,
	}

	cmd.Flags().String("file", "", "Seed file path (default: the config's seed_path)")

	RootCmd.AddCommand(cmd)
}

func runSeed(cmd *cobra.Command, args []string) {
	cfg := config.LoadConfig(configPath)

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = cfg.Tutor.SeedPath
	}

	seed, err := store.LoadSeedFile(path)
	if err != nil {
		exitErr("load seed file", err)
	}

	st, err := store.NewTutorStore(cfg.Tutor.DBPath)
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	if err := st.Seed(seed); err != nil {
		exitErr("seed database", err)
	}

	fmt.Printf("Seeded %d topics and %d flashcards into %s\n", len(seed.Topics), len(seed.Flashcards), cfg.Tutor.DBPath)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
