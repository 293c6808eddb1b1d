package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/arbiterhq/arbiter/internal/adapter/postgres"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
	"github.com/arbiterhq/arbiter/internal/service"
)

// runAdmin dispatches admin subcommands (create-reviewer, list-reviewers, reset-password).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-reviewer":
		return runAdminCreateReviewer(args[1:])
	case "list-reviewers":
		return runAdminListReviewers(args[1:])
	case "reset-password":
		return runAdminResetPassword(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: arbiter admin <command> [options]

Commands:
  create-reviewer   Create a new reviewer account
  list-reviewers    List all reviewers
  reset-password    Reset a reviewer's password
  help              Show this help message

Examples:
  arbiter admin create-reviewer --email sam@county.gov --name "Sam Staff" --tier staff
  arbiter admin create-reviewer --email dana@county.gov --name "Dana Director" --role "Director of Assessment" --tier director
  arbiter admin list-reviewers
  arbiter admin reset-password --email sam@county.gov
`)
}

func loadAdminDeps() (*service.AuthService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	authSvc := service.NewAuthService(store, &cfg.Auth)

	cleanup := func() {
		pool.Close()
	}
	return authSvc, cleanup, nil
}

func runAdminCreateReviewer(args []string) error {
	fs := flag.NewFlagSet("create-reviewer", flag.ContinueOnError)
	email := fs.String("email", "", "reviewer email address (required)")
	name := fs.String("name", "", "reviewer display name (required)")
	role := fs.String("role", "", "job title, e.g. \"Senior Appraiser\"")
	tier := fs.String("tier", "staff", "authority tier: staff, supervisor, or director")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	authorityTier := decision.AuthorityTier(*tier)
	if !authorityTier.Valid() {
		return fmt.Errorf("invalid --tier %q: must be staff, supervisor, or director", *tier)
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	rv, err := authSvc.Register(ctx, &reviewer.CreateRequest{
		Email:    *email,
		Name:     *name,
		Role:     *role,
		Tier:     authorityTier,
		Password: pass,
	})
	if err != nil {
		return fmt.Errorf("create reviewer: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Reviewer created: %s (id=%s, tier=%s)\n", rv.Email, rv.ID, rv.Tier)
	return nil
}

func runAdminListReviewers(args []string) error {
	fs := flag.NewFlagSet("list-reviewers", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	reviewers, err := authSvc.ListReviewers(ctx)
	if err != nil {
		return fmt.Errorf("list reviewers: %w", err)
	}

	if len(reviewers) == 0 {
		fmt.Println("No reviewers found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tTIER\tENABLED")
	for i := range reviewers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			reviewers[i].ID, reviewers[i].Email, reviewers[i].Name, reviewers[i].Role, reviewers[i].Tier, reviewers[i].Enabled)
	}
	return w.Flush()
}

func runAdminResetPassword(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	email := fs.String("email", "", "reviewer email address (required)")
	password := fs.String("password", "", "new password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	newPass := *password
	if newPass == "" {
		var err error
		newPass, err = promptPassword("New password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if newPass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if err := authSvc.ResetPassword(ctx, *email, newPass); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Password reset successfully for %s\n", *email)
	return nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
