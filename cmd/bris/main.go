// BRIS: Banking Regulatory Intelligence System.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/bris/api"
	"github.com/seenimoa/bris/internal/config"
	"github.com/seenimoa/bris/internal/knowledge"
	"github.com/seenimoa/bris/internal/observability"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bris",
	Short: "BRIS: Banking Regulatory Intelligence System",
	Long: `BRIS computes prudential metrics (securitization risk weights, leverage,
LCR, NSFR, MREL, IRRBB, RWA, CVA and large exposures) and fronts a
regulatory knowledge backend for chat and document search.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if l, _ := cmd.Flags().GetString("log-level"); l != "" {
			level = l
		}
		log = observability.NewLoggerTo(os.Stderr, "bris", level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "BRIS %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.API.Port, _ = cmd.Flags().GetInt("port")
		}

		srv, err := api.NewServer(cfg, log)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default: api.port, 8000)")
}

// --- Calc Command ---

var calcCmd = &cobra.Command{
	Use:   "calc [engine]",
	Short: "Run a regulatory calculation from a JSON input file",
	Long: `Run one calculation engine offline, using the configured thresholds.

Engines: ` + engineList() + `

Examples:
  bris calc leverage -f leverage.json
  echo '{"hqla_level1":500,"retail_stable":1000}' | bris calc lcr -o yaml`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: engineNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		format, _ := cmd.Flags().GetString("output")

		in := cmd.InOrStdin()
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return runCalc(cfg, args[0], in, format, cmd.OutOrStdout())
	},
}

func init() {
	calcCmd.Flags().StringP("file", "f", "-", "input JSON file, - for stdin")
	calcCmd.Flags().StringP("output", "o", "json", "output format (json, yaml)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		kb := knowledge.New(
			knowledge.WithBaseURL(cfg.Backend.URL),
			knowledge.WithAPIKey(cfg.Backend.APIKey),
			knowledge.WithTimeout(10*time.Second),
		)

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		configFile := cfg.Source
		if configFile == "" {
			configFile = "(defaults)"
		}
		report := map[string]interface{}{
			"version":     version,
			"config_file": configFile,
			"backend_url": kb.BaseURL(),
			"backend":     kb.Overview(ctx),
			"keys":        config.CheckAPIKeys(cfg),
			"parameters":  cfg.Regulation.Params(),
		}
		return writeOutput(cmd.OutOrStdout(), report, "yaml")
	},
}

// writeOutput renders v as indented JSON or as YAML. YAML goes through the
// JSON encoding first so field names match the API.
func writeOutput(w io.Writer, v interface{}, format string) error {
	switch format {
	case "json":
		return writeJSON(w, v)
	case "yaml", "yml":
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}
