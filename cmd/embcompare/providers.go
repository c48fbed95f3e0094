package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers and their namespaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), renderProviders(cfg.DomainProviders()))
			return nil
		},
	}
}

var (
	providerNameStyle = lipgloss.NewStyle().Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#00BFFF"})
	providerMutedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"})
)

// renderProviders prints one block per provider: model, dimensions, credential source and namespaces.
func renderProviders(providers []domain.ProviderConfig) string {
	var b strings.Builder
	for _, p := range providers {
		b.WriteString(providerNameStyle.Render(p.Name))
		b.WriteString(providerMutedStyle.Render(fmt.Sprintf("  %s %s (%d dims, credentials: %s)",
			p.Kind, p.Model, p.Dimensions, p.CredentialRef)))
		b.WriteString("\n")

		domains := make([]string, 0, len(p.Namespaces))
		for d := range p.Namespaces {
			domains = append(domains, string(d))
		}
		slices.Sort(domains)
		for _, d := range domains {
			fmt.Fprintf(&b, "  %-8s -> %s\n", d, p.Namespaces[domain.SearchDomain(d)])
		}
	}
	if len(providers) == 0 {
		b.WriteString("No providers configured.\n")
	}
	return b.String()
}
