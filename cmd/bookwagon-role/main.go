package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/programmerrakibul/book-wagon-client/internal/config"
	"github.com/programmerrakibul/book-wagon-client/internal/identity"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/roles"
	"github.com/programmerrakibul/book-wagon-client/internal/services"
	"github.com/programmerrakibul/book-wagon-client/internal/session"
	"github.com/programmerrakibul/book-wagon-client/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	email    string
	password string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "bookwagon-role",
	Short:         "Inspect and change BookWagon user roles",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Sign in and print the resolved role",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, role, err := signIn(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		p := s.Store.Snapshot().Principal
		fmt.Printf("%s\t%s\n", p.Email, role)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <email> <role>",
	Short: "Change a user's role (requires an admin account)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := models.ParseRole(args[1])
		if err != nil {
			return err
		}

		s, role, err := signIn(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if role != models.RoleAdmin {
			return fmt.Errorf("%s is %s, not admin", email, role)
		}

		if err := services.NewUserService().SetRole(cmd.Context(), s.API, args[0], target); err != nil {
			return err
		}

		fmt.Printf("Successfully set %s to %s\n", args[0], target)
		return nil
	},
}

// signIn builds a throwaway session, signs in and waits for the role.
func signIn(ctx context.Context) (*session.Session, models.Role, error) {
	if email == "" {
		return nil, "", errors.New("--email is required")
	}
	if password == "" {
		password = os.Getenv("BOOKWAGON_PASSWORD")
	}
	if password == "" {
		return nil, "", errors.New("--password or BOOKWAGON_PASSWORD is required")
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, "", err
		}
	}

	s, err := session.New(uuid.New(), session.Deps{
		Identity:       identity.NewClient(cfg.Identity),
		Backend:        storage.NewMemoryBackend(),
		Logger:         logger,
		APIBaseURL:     cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		RoleTimeout:    cfg.RoleTimeout,
		RoleCacheSize:  1,
		LoginPath:      cfg.LoginPath,
	})
	if err != nil {
		return nil, "", err
	}

	p, err := s.Store.SignIn(ctx, email, password)
	if err != nil {
		s.Close()
		return nil, "", fmt.Errorf("sign-in failed: %s", identity.UserMessage(err))
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.RoleTimeout+time.Second)
	defer cancel()

	res := s.Roles.Wait(waitCtx, p)
	switch res.State {
	case roles.Resolved:
		return s, res.Role, nil
	case roles.Failed:
		s.Close()
		return nil, "", errors.New("role lookup failed")
	default:
		s.Close()
		return nil, "", errors.New("timed out waiting for role")
	}
}

func main() {
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "account email")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "account password (or BOOKWAGON_PASSWORD)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(whoamiCmd, setCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
