package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"simcollect/pkg/auth"
	"simcollect/pkg/config"
	"simcollect/pkg/ui"
)

var (
	loginCookie string
	logoutAll   bool
	cookieGuide bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Sim Companies credentials",
	Long: `Manage stored Sim Companies credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (SIMCOLLECT_EMAIL and SIMCOLLECT_PASSWORD, read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Store Sim Companies credentials securely",
	Long: `Store the email and password used for browser sign-in, or a session
cookie for static session mode, in the system keychain or an encrypted file.`,
	Example: `  # Interactive login
  simcollect auth login

  # Store a session cookie copied from the browser
  simcollect auth login trader@example.com --cookie <sessionid value>

  # Show how to find the session cookie
  simcollect auth login --guide`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [email]",
	Short: "Remove stored credentials",
	Long: `Remove stored Sim Companies credentials.

If no email is provided, you will be shown a list of stored accounts
to choose from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with masked secrets.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().StringVar(&loginCookie, "cookie", "", "session cookie value for static session mode")
	loginCmd.Flags().BoolVar(&cookieGuide, "guide", false, "explain how to copy the session cookie and exit")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cookieName := config.DefaultConfig().Session.CookieName
	if cookieGuide {
		auth.ShowCookieExtractionGuide(ui.Output, cookieName)
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	p := newPrompter(os.Stdin, ui.Output)

	var email string
	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	}
	if email == "" {
		if email, err = p.String("Email", ""); err != nil {
			return err
		}
	}
	if email == "" {
		ui.PrintError("Email is required")
		return fmt.Errorf("email is required")
	}

	if existing, _ := manager.Retrieve(email); existing != nil {
		if !p.Confirm(fmt.Sprintf("Account '%s' already exists. Update credentials?", email), false) {
			return nil
		}
	}

	account := &auth.Account{Email: email, LastModified: time.Now()}
	if loginCookie != "" {
		account.Cookies = map[string]string{cookieName: loginCookie}
	} else {
		fmt.Fprintln(ui.Output, "\nEnter your password (it will be hidden as you type):")
		if account.Password, err = p.Secret("Password"); err != nil {
			return err
		}
		if account.Password == "" {
			ui.PrintError("Password is required")
			return fmt.Errorf("password is required")
		}
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		return err
	}
	ui.PrintSuccess("Account saved: " + email)

	if _, err := auth.NewKeyringStore(); err == nil {
		ui.PrintInfo("Stored in", "system keychain")
	} else {
		ui.PrintInfo("Stored in", "encrypted file")
	}
	if loginCookie != "" {
		fmt.Fprintln(ui.Output, "\nCollect with the stored cookie:")
		fmt.Fprintf(ui.Output, "  $ simcollect collect --account %s --session-mode static\n", email)
	} else {
		fmt.Fprintln(ui.Output, "\nStart collecting:")
		fmt.Fprintf(ui.Output, "  $ simcollect collect --account %s\n", email)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}
	p := newPrompter(os.Stdin, ui.Output)

	if logoutAll {
		if !p.Confirm("Remove ALL accounts? This cannot be undone!", false) {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove all accounts", err.Error())
			return err
		}
		ui.PrintSuccess("All accounts removed")
		return nil
	}

	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No stored accounts found")
			return nil
		}

		fmt.Fprintln(ui.Output, "Select account to remove:")
		for i, account := range accounts {
			fmt.Fprintf(ui.Output, "  %d. %s\n", i+1, account.Email)
		}
		fmt.Fprintf(ui.Output, "  0. Cancel\n\n")

		choice, err := p.Int("Choice", 0, 0)
		if err != nil {
			return err
		}
		if choice == 0 {
			return nil
		}
		if choice > len(accounts) {
			ui.PrintError("Invalid choice")
			return fmt.Errorf("invalid choice %d", choice)
		}
		email = accounts[choice-1].Email
	}

	if err := manager.Delete(email); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		return err
	}
	ui.PrintSuccess("Account removed: " + email)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		return err
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'simcollect auth login' to add an account")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Fprintln(ui.Output)

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(ui.Output, "%d. Email: %s\n", i+1, sanitized.Email)
		if sanitized.Password != "" {
			fmt.Fprintf(ui.Output, "   Password: %s\n", sanitized.Password)
		}
		for name, value := range sanitized.Cookies {
			fmt.Fprintf(ui.Output, "   Cookie %s: %s\n", name, value)
		}
		fmt.Fprintf(ui.Output, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(ui.Output)
	}
	return nil
}
