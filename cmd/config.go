package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/derickschaefer/timefilter/internal/config"
	"github.com/derickschaefer/timefilter/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage timefilter configuration",
	Long: `Read and write timefilter configuration stored in config.json.

Values are layered, highest priority first: CLI flags, the environment
(SUPERSET_URL, SUPERSET_ACCESS_TOKEN, TIMEFILTER_DB_PATH), a .env file in the
current directory, config.json, and built-in defaults.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintln(out, "  Set base_url to your Superset instance and access_token to an API token.")
		fmt.Fprintf(out, "  Secrets can live in %s instead: %s=...\n", config.DefaultEnvFile, config.EnvToken)
		return nil
	},
}

var configGetShowSecrets bool

// configOut is the structured form of `config get`.
type configOut struct {
	BaseURL      string  `json:"base_url" yaml:"base_url"`
	AccessToken  string  `json:"access_token" yaml:"access_token"`
	Format       string  `json:"default_format" yaml:"default_format"`
	Timeout      string  `json:"timeout" yaml:"timeout"`
	Concurrency  int     `json:"concurrency" yaml:"concurrency"`
	Rate         float64 `json:"rate" yaml:"rate"`
	DBPath       string  `json:"db_path" yaml:"db_path"`
	Debounce     string  `json:"debounce" yaml:"debounce"`
	CacheTTL     string  `json:"cache_ttl" yaml:"cache_ttl"`
	Endpoints    string  `json:"endpoints" yaml:"endpoints"`
	RegistryPath string  `json:"registry_path" yaml:"registry_path"`
	ConfigFile   string  `json:"config_file" yaml:"config_file"`
	EnvFile      string  `json:"env_file" yaml:"env_file"`
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.URL, globalFlags.Token)
		if err != nil {
			return err
		}

		token := cfg.RedactedToken()
		if configGetShowSecrets {
			token = cfg.AccessToken
		}
		if cfg.AccessToken == "" {
			token = "(not set)"
		}

		orNotFound := func(s string) string {
			if s == "" {
				return "(not found)"
			}
			return s
		}
		registry := cfg.RegistryPath
		if registry == "" {
			registry = "(built-in)"
		}

		out := configOut{
			BaseURL:      cfg.BaseURL,
			AccessToken:  token,
			Format:       cfg.Format,
			Timeout:      cfg.Timeout.String(),
			Concurrency:  cfg.Concurrency,
			Rate:         cfg.Rate,
			DBPath:       cfg.DBPath,
			Debounce:     cfg.Debounce.String(),
			CacheTTL:     cfg.CacheTTL.String(),
			Endpoints:    cfg.Endpoints,
			RegistryPath: registry,
			ConfigFile:   orNotFound(cfg.ConfigPath),
			EnvFile:      orNotFound(cfg.EnvPath),
		}

		w := cmd.OutOrStdout()
		switch resolveFormat("") {
		case render.FormatJSON:
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		case render.FormatYAML:
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(out)
		default:
			printKVTable(w, [][]string{
				{"base_url", out.BaseURL},
				{"access_token", out.AccessToken},
				{"default_format", out.Format},
				{"timeout", out.Timeout},
				{"concurrency", fmt.Sprintf("%d", out.Concurrency)},
				{"rate", fmt.Sprintf("%.1f req/s", out.Rate)},
				{"db_path", out.DBPath},
				{"debounce", out.Debounce},
				{"cache_ttl", out.CacheTTL},
				{"endpoints", out.Endpoints},
				{"registry_path", out.RegistryPath},
				{"config_file", out.ConfigFile},
				{"env_file", out.EnvFile},
			})
			return nil
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Long: fmt.Sprintf(`Set a configuration value in config.json, creating the file from the
template if it does not exist.

Valid keys: %s`, strings.Join(config.Keys, ", ")),
	Example: `  timefilter config set base_url https://superset.example.com
  timefilter config set cache_ttl 1h
  timefilter config set endpoints inclusive,inclusive`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		path := config.DefaultConfigFile

		// Load existing file or start from template
		f := config.Template()
		if existing, err := config.ReadFile(path); err == nil {
			f = *existing
		} else if _, statErr := os.Stat(path); statErr == nil {
			return err
		}

		if err := f.Set(key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configGetCmd.Flags().BoolVar(&configGetShowSecrets, "show-secrets", false, "show the access token in plain text")
}

// printKVTable renders a two-column key/value table using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}
