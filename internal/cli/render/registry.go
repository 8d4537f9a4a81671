package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RegistryRenderer renders registry reads
type RegistryRenderer struct {
	out io.Writer
}

// NewRegistryRenderer creates a new registry renderer
func NewRegistryRenderer(out io.Writer) *RegistryRenderer {
	return &RegistryRenderer{out: out}
}

// RenderLookup renders the result of a single lookup
func (r *RegistryRenderer) RenderLookup(result *usecase.LookupResult) error {
	if !result.Found {
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("no entry for %q in registry %s", result.Query, result.Registry.Hex())))
		if len(result.Suggestions) > 0 {
			fmt.Fprintf(r.out, "\nDid you mean:\n")
			for _, s := range result.Suggestions {
				color.New(color.FgCyan).Fprintf(r.out, "  %s\n", s)
			}
		}
		return nil
	}

	label := cases.Title(language.English).String(result.Namespace)
	color.New(color.FgGreen, color.Bold).Fprintf(r.out, "%s\n", result.Address.Hex())
	fmt.Fprintf(r.out, "  Query:     %s\n", result.Query)
	fmt.Fprintf(r.out, "  Namespace: %s\n", label)
	fmt.Fprintf(r.out, "  Key:       %s\n", result.Key.Hex())
	fmt.Fprintf(r.out, "  Registry:  %s%s\n", result.Registry.Hex(), lockBadge(result.Locked))
	return nil
}

// RenderList renders every registrable component with its entries
func (r *RegistryRenderer) RenderList(result *usecase.RegistryListResult) error {
	color.New(color.Bold).Fprintf(r.out, "Registry %s", result.Registry.Hex())
	fmt.Fprintf(r.out, " (%s)%s\n\n", result.Group, lockBadge(result.Locked))

	rows := make(TableData, 0, len(result.Entries))
	for _, e := range result.Entries {
		address := color.New(color.FgHiBlack).Sprint("-")
		reverse := color.New(color.FgHiBlack).Sprint("-")
		if e.Address != nil {
			address = e.Address.Hex()
			if e.AddressRegistered {
				reverse = color.New(color.FgGreen).Sprint("✓")
			} else {
				reverse = color.New(color.FgRed).Sprint("✗")
			}
		}
		rows = append(rows, []string{
			color.New(color.FgCyan).Sprint(e.Component),
			e.Name,
			address,
			reverse,
		})
	}

	fmt.Fprintln(r.out, renderTable([]string{"COMPONENT", "NAME", "ADDRESS", "ADDRESS KEY"}, rows))
	return nil
}

func lockBadge(locked bool) string {
	if locked {
		return color.New(color.FgGreen).Sprint(" [locked]")
	}
	return color.New(color.FgYellow).Sprint(" [unlocked]")
}
