package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"connectchat/internal/ai"
	"connectchat/internal/config"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your installation",
		Long: `Verifies that the configuration, the AI proxy, and the contact-center
settings are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("connectchat doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'connectchat init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\nResults: %d passed, %d failed\n", passed, failed)
				return nil
			}
			printPass("Config validation", "valid")
			passed++

			// 3. AI proxy reachable
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			agent := ai.NewClient(ai.Config{
				ProxyBaseURL:     cfg.AI.ProxyBaseURL,
				PrimaryProvider:  cfg.AI.PrimaryProvider,
				FallbackProvider: cfg.AI.FallbackProvider,
				HTTPClient:       healthHTTPClient,
			})
			health := agent.HealthCheck(ctx)
			if health.PrimaryAvailable {
				printPass("Primary provider", cfg.AI.PrimaryProvider)
				passed++
			} else {
				printWarn("Primary provider", fmt.Sprintf("%s unreachable via %s", cfg.AI.PrimaryProvider, cfg.AI.ProxyBaseURL))
				warned++
			}
			if health.FallbackAvailable {
				printPass("Fallback provider", cfg.AI.FallbackProvider)
				passed++
			} else {
				printWarn("Fallback provider", fmt.Sprintf("%s unreachable via %s", cfg.AI.FallbackProvider, cfg.AI.ProxyBaseURL))
				warned++
			}
			if !health.PrimaryAvailable && !health.FallbackAvailable {
				printFail("AI proxy", "no provider reachable")
				failed++
			}

			// 4. Handover auth API configured
			if cfg.Connect.AuthAPIURL == "" {
				printWarn("Auth API", "not configured; agent handover disabled")
				warned++
			} else {
				printPass("Auth API", cfg.Connect.AuthAPIURL)
				passed++
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
