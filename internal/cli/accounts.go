package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/internal/db"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			log, closer, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer closer.Close()

			conn, closeDB, err := openDatabase(cfg.Database.DSN, log)
			if err != nil {
				return err
			}
			defer closeDB()
			if err := db.Migrate(conn); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "schema up to date (%s)\n", db.DetectDialect(cfg.Database.DSN))
			return nil
		},
	}
}

func newCreateAccountCmd(a *app) *cobra.Command {
	var (
		kind string
		req  goAccount.CreateAccountRequest
	)
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Provision an account of any kind",
		Long:  "create-account provisions an administrator, creator or user account. The password is read from stdin when --password is omitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := account.ParseKind(kind)
			if err != nil {
				return err
			}
			req.Kind = k
			if req.Password == "" {
				if req.Password, err = a.readSecret(); err != nil {
					return err
				}
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			log, closer, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer closer.Close()

			rt, err := openRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.close()

			profile, err := rt.engine.CreateAccount(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(profile)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(account.KindUser), "account kind: admin, creator or user")
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&req.Name, "name", "", "given name")
	cmd.Flags().StringVar(&req.Surname, "surname", "", "family name")
	cmd.Flags().StringVar(&req.Alias, "alias", "", "display alias")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSetActiveCmd(a *app) *cobra.Command {
	var (
		kind   string
		id     string
		active bool
	)
	cmd := &cobra.Command{
		Use:   "set-active",
		Short: "Activate or deactivate an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := account.ParseKind(kind)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			log, closer, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer closer.Close()

			rt, err := openRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.engine.SetActive(cmd.Context(), k, id, active); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s %s active=%t\n", k, id, active)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(account.KindUser), "account kind: admin, creator or user")
	cmd.Flags().StringVar(&id, "id", "", "account id")
	cmd.Flags().BoolVar(&active, "active", true, "whether the account may log in")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newHashPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a digest for a password using the configured algorithm",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			var plaintext string
			if len(args) == 1 {
				plaintext = args[0]
			} else if plaintext, err = a.readSecret(); err != nil {
				return err
			}

			hasher, err := goAccount.NewHasher(cfg.Engine.Password)
			if err != nil {
				return err
			}
			digest, err := hasher.Hash(plaintext)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, digest)
			return nil
		},
	}
}

// readSecret reads one line from stdin.
func (a *app) readSecret() (string, error) {
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("password required on stdin")
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("password required on stdin")
	}
	return secret, nil
}
