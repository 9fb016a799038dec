package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the commands the gateway can dispatch",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "COMMAND\tPARAMETERS\tDESCRIPTION")
		for _, spec := range catalog.Default().Commands() {
			params := make([]string, 0, len(spec.Parameters))
			for _, p := range spec.Parameters {
				name := p.Name
				if !p.Required {
					name += "?"
				}
				params = append(params, name)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", spec.Name, strings.Join(params, ","), spec.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}
