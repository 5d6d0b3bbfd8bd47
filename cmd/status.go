package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/waypoint/internal/providers"
	"github.com/crystaldolphin/waypoint/internal/shared/cmdutils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show waypoint status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	fmt.Printf("%s waypoint Status\n\n", cmdutils.Logo)

	_, statErr := os.Stat(cfgPath)
	fmt.Printf("Config:    %s %s\n", cfgPath, mark(statErr == nil))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	match := cfg.MatchProvider("")
	fmt.Printf("Model:     %s\n", cfg.Agent.Model)
	if match.Name != "" {
		fmt.Printf("Provider:  %s\n", providers.FindByName(match.Name).Label())
	} else {
		fmt.Printf("Provider:  (none configured)\n")
	}
	fmt.Printf("Server:    %s\n", cfg.Server.Addr())
	fmt.Printf("Max steps: %d\n", cfg.Agent.MaxSteps)
	fmt.Printf("TTL:       %s\n\n", cfg.Conversations.TTL)

	fmt.Println("Providers:")
	for _, spec := range providers.PROVIDERS {
		p := cfg.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		if p.APIKey != "" {
			fmt.Printf("  %-20s ✓\n", spec.Label())
		} else {
			fmt.Printf("  %-20s (not set, %s)\n", spec.Label(), spec.EnvKey)
		}
	}

	fmt.Println("\nTools:")
	fmt.Printf("  %-20s %s\n", "Jina search/reader", keyStatus(cfg.Tools.Jina.APIKey, "direct fetch only"))
	fmt.Printf("  %-20s %s\n", "Google Maps", keyStatus(cfg.Tools.Maps.APIKey, "maps tools will fail"))
	return nil
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func keyStatus(key, fallback string) string {
	if key != "" {
		return "✓"
	}
	return "(not set, " + fallback + ")"
}
