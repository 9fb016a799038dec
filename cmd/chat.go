package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/cf-pulse/internal/audit"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the gateway in natural language",
	Long: `Sends a message to the chat orchestrator, which may run catalog commands
in the given org/space to answer it. Without a message, starts an
interactive session; type "exit" to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("org", "", "organization (defaults to cf.default_org)")
	chatCmd.Flags().String("space", "", "space (defaults to cf.default_space)")
	chatCmd.Flags().String("conversation", "default", "conversation id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	org, _ := cmd.Flags().GetString("org")
	space, _ := cmd.Flags().GetString("space")
	conversation, _ := cmd.Flags().GetString("conversation")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := createPlatform(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to platform: %w", err)
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	d, err := createDispatcher(cfg, client, audit.NewStore(database))
	if err != nil {
		return err
	}
	orchestrator, err := createOrchestrator(cfg, d, createMemory(cfg, database))
	if err != nil {
		return err
	}

	s := scopeFlags(cfg, org, space)
	converse := func(input string) error {
		answer, err := orchestrator.Converse(ctx, conversation, input, s)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	}

	if len(args) > 0 {
		return converse(strings.Join(args, " "))
	}
	return chatLoop(ctx, s, converse)
}

// chatLoop reads one message per line until EOF, "exit" or interrupt.
func chatLoop(ctx context.Context, s scope.Scope, converse func(string) error) error {
	fmt.Fprintf(os.Stderr, "cfpulse chat in %s (type exit to quit)\n", s)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := converse(input); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}
