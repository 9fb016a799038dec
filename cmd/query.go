package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/cf-pulse/internal/gateway"
	"github.com/ziadkadry99/cf-pulse/internal/progress"
)

var queryCmd = &cobra.Command{
	Use:   "query <command>",
	Short: "Dispatch one catalog command directly",
	Long: `Runs a single catalog command against the given org/space and prints the
structured result as JSON. No language model is involved.

Examples:
  cfpulse query applications --org acme --space dev
  cfpulse query scale --arg name=joke --arg instances=3
  cfpulse query push --arg name=joke --arg path='target/*.jar' --arg no_start=true
  cfpulse query user-provided-service-create --args-json '{"name":"creds","credentials":{"url":"https://x"}}'`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("org", "", "organization (defaults to cf.default_org)")
	queryCmd.Flags().String("space", "", "space (defaults to cf.default_space)")
	queryCmd.Flags().StringArray("arg", nil, "command argument as key=value (repeatable)")
	queryCmd.Flags().String("args-json", "", "command arguments as a JSON object")
	queryCmd.Flags().Bool("audit", false, "record the dispatch in the audit trail")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	org, _ := cmd.Flags().GetString("org")
	space, _ := cmd.Flags().GetString("space")
	pairs, _ := cmd.Flags().GetStringArray("arg")
	rawJSON, _ := cmd.Flags().GetString("args-json")
	withAudit, _ := cmd.Flags().GetBool("audit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cmdArgs, err := parseArgFlags(pairs, rawJSON)
	if err != nil {
		return err
	}

	client, err := createPlatform(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to platform: %w", err)
	}

	var auditStore *auditStoreHandle
	if withAudit {
		if auditStore, err = openAudit(cfg); err != nil {
			return err
		}
		defer auditStore.Close()
	}
	d, err := createDispatcher(cfg, client, auditStore.Store())
	if err != nil {
		return err
	}

	s := scopeFlags(cfg, org, space)
	reporter := progress.NewReporter()
	reporter.Start(fmt.Sprintf("%s in %s", args[0], s))

	ctx = gateway.WithOrigin(ctx, gateway.Origin{Source: gateway.SourceQuery})
	res := d.Dispatch(ctx, args[0], s, cmdArgs)
	if res.OK() {
		reporter.Finish(true, args[0])
	} else {
		reporter.Finish(false, res.Failure.Error())
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))

	if !res.OK() {
		return fmt.Errorf("%s failed: %w", args[0], res.Err())
	}
	return nil
}
