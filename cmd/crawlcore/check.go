package main

import (
	"fmt"

	"github.com/nao1215/crawlcore/internal/crawler"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check URL...",
		Short: "Show whether URLs pass the admission filter",
		Long: `Check runs each URL through the admission filter and prints the decision
with the rule that rejected it.

URLs are checked in order against one filter, so a URL too similar to an
earlier accepted argument is rejected as similar_url. Use --stateless to
judge every URL on its own.

Examples:
  crawlcore check https://www.ics.uci.edu/about https://www.ics.uci.edu/login

  crawlcore check --stateless "https://www.ics.uci.edu/events/?ical=1"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheckCmd,
	}

	cmd.Flags().Bool("stateless", false, "Ignore URL similarity between arguments")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	stateless, err := cmd.Flags().GetBool("stateless")
	if err != nil {
		return err
	}

	var opts []crawler.FilterOption
	if stateless {
		opts = append(opts, crawler.WithoutSimilarity())
	}
	filter := crawler.NewFilter(cfg, opts...)

	out := cmd.OutOrStdout()
	for _, rawURL := range args {
		rule := filter.Admit(rawURL)
		if rule.Accepted() {
			fmt.Fprintf(out, "accepted\t%s\n", rawURL)
			continue
		}
		fmt.Fprintf(out, "rejected\t%s\t%s\n", rawURL, rule)
	}
	return nil
}
