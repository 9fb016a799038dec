package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/cf-pulse/internal/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Cloud Foundry and LLM provider credentials",
	Long: `Store and manage credentials.

Credentials are stored in ~/.cfpulse/credentials.json and used
as a fallback when environment variables are not set.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the configured Cloud Foundry API",
	Long: `Runs a UAA password grant against cf.api_url and caches the tokens.

The password is read from CF_PASSWORD, or prompted for when unset. Later
commands reuse the cached refresh token, so the password is not stored.`,
	RunE: runAuthLogin,
}

var authAnthropicCmd = &cobra.Command{
	Use:   "anthropic",
	Short: "Store Anthropic API key",
	Long: `Store your Anthropic API key for persistent use.

Get your API key at https://console.anthropic.com/settings/keys`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return storeAPIKey("anthropic", verifyAnthropicKey)
	},
}

var authOpenAICmd = &cobra.Command{
	Use:   "openai",
	Short: "Store OpenAI API key",
	Long: `Store your OpenAI API key for persistent use.

Get your API key at https://platform.openai.com/api-keys`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return storeAPIKey("openai", nil)
	},
}

var authOpenRouterCmd = &cobra.Command{
	Use:   "openrouter",
	Short: "Store OpenRouter API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return storeAPIKey("openrouter", nil)
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are configured",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [provider]",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials for a provider.

If no provider is specified, removes all stored credentials.
Valid providers: cf, anthropic, openai, openrouter`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authAnthropicCmd)
	authCmd.AddCommand(authOpenAICmd)
	authCmd.AddCommand(authOpenRouterCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidatePlatform(); err != nil {
		return err
	}

	password := cfg.CF.Password
	if password == "" {
		prompt := promptui.Prompt{
			Label: fmt.Sprintf("Password for %s", cfg.CF.Username),
			Mask:  '*',
		}
		if password, err = prompt.Run(); err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
	}

	uaa := auth.UAAConfig{
		APIURL:            cfg.CF.APIURL,
		ClientID:          cfg.CF.ClientID,
		SkipTLSValidation: cfg.CF.SkipTLSValidation,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := auth.Session(ctx, uaa, cfg.CF.Username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("Logged in to %s as %s.\n", cfg.CF.APIURL, cfg.CF.Username)
	return nil
}

// storeAPIKey reads a key from stdin, optionally verifies it, and saves it.
func storeAPIKey(provider string, verify func(string) error) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s API key: ", provider)
	input, _ := reader.ReadString('\n')
	apiKey := strings.TrimSpace(input)
	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}

	if verify != nil {
		fmt.Print("Verifying API key... ")
		if err := verify(apiKey); err != nil {
			fmt.Println("failed!")
			return fmt.Errorf("key verification failed: %w", err)
		}
		fmt.Println("valid!")
	}

	creds, err := auth.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	key := &auth.APIKeyCredentials{APIKey: apiKey}
	switch provider {
	case "anthropic":
		creds.Anthropic = key
	case "openai":
		creds.OpenAI = key
	case "openrouter":
		creds.OpenRouter = key
	}

	if err := auth.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Printf("%s credentials stored successfully!\n", provider)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	creds, err := auth.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	path, _ := auth.CredentialPath()
	fmt.Printf("Credentials file: %s\n\n", path)

	fmt.Println("Provider     Status")
	fmt.Println("--------     ------")

	if creds.CF != nil && creds.CF.RefreshToken != "" {
		fmt.Printf("cf           logged in (%s as %s)\n", creds.CF.APIURL, creds.CF.Username)
	} else {
		fmt.Println("cf           not logged in")
	}

	for _, p := range []string{"anthropic", "openai", "openrouter"} {
		status := "not configured"
		if env := auth.EnvVar(p); env != "" && os.Getenv(env) != "" {
			status = "configured (env var)"
		} else if auth.GetAPIKey(p) != "" {
			status = "configured (stored)"
		}
		fmt.Printf("%-12s %s\n", p, status)
	}

	// Ollama (always available locally)
	fmt.Println("ollama       available (local)")

	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	creds, err := auth.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if len(args) == 0 {
		creds = &auth.Credentials{}
		fmt.Println("All stored credentials removed.")
	} else {
		switch args[0] {
		case "cf":
			creds.CF = nil
		case "anthropic":
			creds.Anthropic = nil
		case "openai":
			creds.OpenAI = nil
		case "openrouter":
			creds.OpenRouter = nil
		default:
			return fmt.Errorf("unknown provider %q (valid: cf, anthropic, openai, openrouter)", args[0])
		}
		fmt.Printf("%s credentials removed.\n", args[0])
	}

	return auth.Save(creds)
}

func verifyAnthropicKey(apiKey string) error {
	// Send a minimal request to check the key is valid.
	body := strings.NewReader(`{"model":"claude-sonnet-4-20250514","max_tokens":1,"messages":[{"role":"user","content":"hi"}]}`)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "https://api.anthropic.com/v1/messages", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 401 {
		return fmt.Errorf("invalid API key (401 Unauthorized)")
	}
	return nil
}
