package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/cf-pulse/internal/audit"
	"github.com/ziadkadry99/cf-pulse/internal/config"
	"github.com/ziadkadry99/cf-pulse/internal/db"
)

// auditStoreHandle owns the database behind an audit store. A nil handle
// means auditing is off.
type auditStoreHandle struct {
	database *db.DB
	store    *audit.Store
}

func openAudit(cfg *config.Config) (*auditStoreHandle, error) {
	database, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return &auditStoreHandle{database: database, store: audit.NewStore(database)}, nil
}

func (h *auditStoreHandle) Store() *audit.Store {
	if h == nil {
		return nil
	}
	return h.store
}

func (h *auditStoreHandle) Close() error {
	if h == nil {
		return nil
	}
	return h.database.Close()
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent dispatches from the audit trail",
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().String("command", "", "filter by command name")
	auditCmd.Flags().String("org", "", "filter by organization")
	auditCmd.Flags().String("space", "", "filter by space")
	auditCmd.Flags().Bool("failed", false, "only failed dispatches")
	auditCmd.Flags().Duration("since", 0, "only dispatches newer than this (e.g. 24h)")
	auditCmd.Flags().Int("limit", 25, "maximum number of entries")
	auditCmd.Flags().Duration("prune", 0, "delete entries older than this (e.g. 720h) instead of listing")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	h, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	if prune, _ := cmd.Flags().GetDuration("prune"); prune > 0 {
		n, err := h.store.DeleteBefore(context.Background(), time.Now().Add(-prune))
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d audit entries.\n", n)
		return nil
	}

	filter := audit.QueryFilter{}
	filter.Command, _ = cmd.Flags().GetString("command")
	filter.Org, _ = cmd.Flags().GetString("org")
	filter.Space, _ = cmd.Flags().GetString("space")
	filter.FailedOnly, _ = cmd.Flags().GetBool("failed")
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		t := time.Now().Add(-since)
		filter.Since = &t
	}

	entries, err := h.store.Query(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("querying audit trail: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No dispatches recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSOURCE\tCOMMAND\tSCOPE\tOUTCOME\tMS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s/%s\t%s\t%d\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Source, e.Command, e.Org, e.Space, e.Outcome, e.ElapsedMS)
	}
	return tw.Flush()
}
