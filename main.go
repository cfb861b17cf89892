// snitchgen converts declarative category definitions into Little
// Snitch .lsrules files.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"snitchgen/categories"
	"snitchgen/internal/cache"
	"snitchgen/internal/category"
	"snitchgen/internal/lsrules"
	"snitchgen/internal/ruleset"
	"snitchgen/internal/server"
)

var (
	logger *log.Logger

	// categoriesDir overrides the embedded category set, via --categories.
	categoriesDir string
)

func main() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	root := &cobra.Command{
		Use:   "snitchgen",
		Short: "Generate Little Snitch rules from category definitions",
		Long: "snitchgen converts TOML category definitions (domains and process\n" +
			"paths to block or allow) into a Little Snitch .lsrules file.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&categoriesDir, "categories", "c", "",
		"path to a categories directory (default: embedded categories)")

	root.AddCommand(generateCmd())
	root.AddCommand(listCmd())
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadStore loads the category store from --categories, or the
// embedded defaults when no directory is given.
func loadStore() (*category.Store, error) {
	if categoriesDir != "" {
		return category.Load(categoriesDir)
	}
	return category.LoadFS(categories.FS)
}

func generateCmd() *cobra.Command {
	var (
		modeStr     string
		severityStr string
		include     []string
		exclude     []string
		all         bool
		strict      bool
		output      string
		name        string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a .lsrules file",
		Long: "Generate a .lsrules file from the selected categories.\n\n" +
			"Include and exclude patterns match category ids and support glob\n" +
			"wildcards: '*' any run of characters, '?' a single character,\n" +
			"'[abc]' a character class. With no --include patterns, all\n" +
			"categories up to the severity ceiling are selected.",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := ruleset.ParseMode(modeStr)
			if err != nil {
				return err
			}
			severity, err := category.ParseSeverity(severityStr)
			if err != nil {
				return err
			}

			store, err := loadStore()
			if err != nil {
				return err
			}

			params := ruleset.Params{
				Mode:     mode,
				Severity: severity,
				Include:  include,
				Exclude:  exclude,
				All:      all,
				Strict:   strict,
			}
			// Preserve the historical default: plain `generate` blocks
			// everything up to the severity ceiling.
			if len(include) == 0 {
				params.All = true
			}

			selected, warnings, err := ruleset.Select(store, params)
			if err != nil {
				return err
			}
			for _, warning := range warnings {
				logger.Warn(warning)
			}

			if len(selected) == 0 && mode == ruleset.ModeBlock {
				return fmt.Errorf("no categories selected, use --include or --all")
			}

			directives := ruleset.Assemble(selected, mode)
			doc := lsrules.Render(directives, lsrules.Params{
				Name:     name,
				Mode:     mode,
				Severity: severity,
				Selected: ruleset.SelectedIDs(selected),
			})

			body, err := doc.JSON()
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			printSummary(output, doc, len(selected))
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeStr, "mode", "m", "block",
		"'block' denies selected categories, 'allow' denies everything except them")
	cmd.Flags().StringVarP(&severityStr, "severity", "s", "recommended",
		"maximum severity to include (minimal < recommended < aggressive)")
	cmd.Flags().StringArrayVarP(&include, "include", "i", nil,
		"categories to include (supports wildcards: '*-telemetry', 'apple-*')")
	cmd.Flags().StringArrayVarP(&exclude, "exclude", "x", nil,
		"categories to exclude (supports wildcards)")
	cmd.Flags().BoolVarP(&all, "all", "a", false,
		"include all categories up to the severity ceiling")
	cmd.Flags().BoolVar(&strict, "strict", false,
		"fail when a literal pattern matches no category")
	cmd.Flags().StringVarP(&output, "output", "o", "snitchgen.lsrules",
		"output file path")
	cmd.Flags().StringVar(&name, "name", "",
		"custom name for the ruleset in the output file")

	return cmd
}

func printSummary(path string, doc lsrules.Output, selected int) {
	allow := 0
	for _, rule := range doc.Rules {
		if rule.Action == string(ruleset.ActionAllow) {
			allow++
		}
	}
	deny := len(doc.Rules) - allow

	if allow == 0 {
		fmt.Printf("Generated %s with %d rules (%d deny) from %d categories\n",
			path, len(doc.Rules), deny, selected)
		return
	}
	fmt.Printf("Generated %s with %d rules (%d allow, %d deny) from %d categories\n",
		path, len(doc.Rules), allow, deny, selected)
}

func listCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}

			if categoriesDir != "" {
				fmt.Printf("Available categories (from %s):\n\n", categoriesDir)
			} else {
				fmt.Print("Available categories (embedded):\n\n")
			}

			for _, cat := range store.Categories() {
				if verbose {
					fmt.Printf("  %s (%s)\n", cat.ID, cat.Severity)
					fmt.Printf("    Name: %s\n", cat.Name)
					fmt.Printf("    Description: %s\n", cat.Description)
					fmt.Printf("    Impact: %s\n\n",
						strings.ReplaceAll(strings.TrimSpace(cat.Impact), "\n", "\n            "))
					continue
				}
				fmt.Printf("  %-30s [%-11s] %s\n", cat.ID, cat.Severity, cat.Name)
			}

			if !verbose {
				fmt.Println("\nUse --verbose for detailed descriptions and impact information.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"show detailed descriptions and impact information")

	return cmd
}

func serveCmd() *cobra.Command {
	var (
		addr           string
		resultTTL      time.Duration
		reloadInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the category index and ruleset generation over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}

			resultCache := cache.New(resultTTL)
			srv := server.New(store, resultCache, logger)

			mux := http.NewServeMux()
			srv.SetupRoutes(mux)
			handler := server.LoggingMiddleware(logger, mux)

			go func() {
				ticker := time.NewTicker(10 * time.Minute)
				defer ticker.Stop()
				for range ticker.C {
					resultCache.Cleanup()
				}
			}()

			// Reload only makes sense for a real directory; the
			// embedded set cannot change underneath us.
			if reloadInterval > 0 && categoriesDir != "" {
				go func() {
					ticker := time.NewTicker(reloadInterval)
					defer ticker.Stop()
					for range ticker.C {
						fresh, err := category.Load(categoriesDir)
						if err != nil {
							logger.Error("category reload failed", "err", err)
							continue
						}
						if fresh.Fingerprint() != store.Fingerprint() {
							logger.Info("categories reloaded",
								"count", fresh.Len(), "fingerprint", fresh.Fingerprint())
						}
						store = fresh
						srv.Swap(fresh)
					}
				}()
			}

			logger.Info("starting server", "addr", addr,
				"categories", store.Len(), "result_ttl", resultTTL)
			return http.ListenAndServe(addr, handler)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().DurationVar(&resultTTL, "result-ttl", 24*time.Hour, "generated ruleset cache TTL")
	cmd.Flags().DurationVar(&reloadInterval, "reload-interval", 0,
		"interval to reload the categories directory (0 to disable)")

	return cmd
}
