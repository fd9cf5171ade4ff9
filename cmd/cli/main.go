package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kasabot/kasa/db"
	"github.com/kasabot/kasa/pkg/config"
	"github.com/kasabot/kasa/pkg/fx"
	"github.com/kasabot/kasa/pkg/services"
)

var (
	configPath string
	userID     string
	userName   string
	rootCmd    *cobra.Command
)

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error().Err(err).Msg("Error getting home directory")
		os.Exit(1)
	}

	defaultConfigPath := filepath.Join(homeDir, ".kasa", "config.yaml")

	rootCmd = &cobra.Command{
		Use:   "kasa",
		Short: "A multi-currency expense, income and debt tracker",
		Long:  `A CLI tool for logging expenses and income, splitting bills and netting debts across currencies, backed by a SQLite ledger.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "local", "External identity to act as")
	rootCmd.PersistentFlags().StringVar(&userName, "name", "", "Display name for the acting identity")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive REPL",
		Long:  `Start an interactive REPL for recording transactions and managing debts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := initReplState(cmd.Context())
			if err != nil {
				return err
			}
			runREPL(state)
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig()
		},
	}

	rootCmd.AddCommand(replCmd, configCmd)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

type replState struct {
	ctx       context.Context
	db        *db.DB
	ledger    *services.Ledger
	debts     *services.DebtBook
	directory *services.Directory
	account   accountRef
}

// accountRef is refreshed from the directory on demand so currency
// preference changes are visible immediately.
type accountRef struct {
	externalID string
	nameHint   string
}

func initReplState(ctx context.Context) (replState, error) {
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return replState{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return replState{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Initialize(); err != nil {
		return replState{}, fmt.Errorf("failed to initialize database: %w", err)
	}

	client := fx.NewAPIClient(cfg.Fx.APIURL, cfg.Fx.APIKey, 10*time.Second)
	rates := fx.NewService(database, client, time.Duration(cfg.Fx.CacheTTLHours)*time.Hour)

	return replState{
		ctx:       ctx,
		db:        database,
		ledger:    services.NewLedger(database, rates),
		debts:     services.NewDebtBook(database, rates),
		directory: services.NewDirectory(database, cfg.DefaultCurrency),
		account:   accountRef{externalID: userID, nameHint: userName},
	}, nil
}

func runREPL(state replState) {
	fmt.Println("Welcome to the kasa REPL!")
	fmt.Println("Type 'help' for commands, 'exit' or 'quit' to leave.")
	fmt.Println()

	// Close the database once you are done
	defer state.db.Close()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		state.dispatch(line)
	}

	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Error reading input")
	}
}

func (r *replState) dispatch(line string) {
	switch {
	case line == "help":
		printHelp()
	case strings.HasPrefix(line, "add"):
		r.addEntry(line)
	case strings.HasPrefix(line, "history"):
		r.showHistory(line)
	case strings.HasPrefix(line, "reverse"):
		r.reverseEntry(line)
	case strings.HasPrefix(line, "report"):
		r.showReport(line)
	case strings.HasPrefix(line, "debt"):
		r.handleDebts(line)
	case strings.HasPrefix(line, "split"):
		r.splitBill(line)
	case strings.HasPrefix(line, "categories"):
		r.listCategories(line)
	case strings.HasPrefix(line, "currency"):
		r.setCurrency(line)
	default:
		fmt.Println("Unknown command. Type 'help' for a list of commands.")
	}
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  add <expense|income> <amount> <currency> [<category_id>] [<note>] [on <DD.MM[.YYYY]>]")
	fmt.Println("                          - Record an expense or income entry")
	fmt.Println("  split <counterparty> <total> <currency> [<share>]")
	fmt.Println("                          - Record a paid bill and the counterparty's share as a debt")
	fmt.Println("  history [<limit>]       - Show the latest transactions")
	fmt.Println("  reverse <transaction>   - Reverse a transaction by id")
	fmt.Println("  report [<year> <month>] [in <currency>]")
	fmt.Println("                          - Monthly report, current month by default")
	fmt.Println("  debt add <counterparty> <amount> <currency> [<note>]")
	fmt.Println("                          - Record that the counterparty owes you")
	fmt.Println("  debt list               - List unsettled debts")
	fmt.Println("  debt settle <debt>      - Settle a debt by id")
	fmt.Println("  debt summary            - Summarize debts by counterparty")
	fmt.Println("  debt net <counterparty> [<EUR|USD>]")
	fmt.Println("                          - Preview bilateral net debts")
	fmt.Println("  debt cancel <counterparty> [<EUR|USD>]")
	fmt.Println("                          - Cancel mutual debts, leaving one net debt")
	fmt.Println("  categories [income]     - List expense (or income) categories")
	fmt.Println("  currency <default|report> <code>")
	fmt.Println("                          - Update currency preferences")
	fmt.Println("  exit, quit              - Exit the REPL")
}

func showConfig() error {
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return err
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Database path:    %s\n", cfg.DBPath)
	fmt.Printf("Default currency: %s\n", cfg.DefaultCurrency)
	fmt.Printf("FX API URL:       %s\n", cfg.Fx.APIURL)

	if cfg.Fx.APIKey == "" {
		fmt.Println("FX API Key:       Not set")
		fmt.Println("\nSet fx.apiKey in the config file or the KASA_FX_API_KEY environment variable.")
	} else {
		key := cfg.Fx.APIKey
		masked := strings.Repeat("*", len(key))
		if len(key) > 8 {
			masked = key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
		}
		fmt.Printf("FX API Key:       %s\n", masked)
	}

	return nil
}
