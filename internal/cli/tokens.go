package cli

import (
	"fmt"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/internal/db"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/token"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newPurgeTokensCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired bearer tokens from the SQL token store",
		Long:  "purge-tokens removes expired rows from auth_tokens. Lookups already ignore them; this only reclaims space. Redis-backed tokens expire on their own.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Engine.Token.Backend != goAccount.TokenBackendSQL {
				return fmt.Errorf("purge-tokens: token backend is %q; only %q keeps expired rows",
					cfg.Engine.Token.Backend, goAccount.TokenBackendSQL)
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

			store := token.NewGormStore(conn, cfg.Engine.Token.TTL, time.Now)
			n, err := store.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			log.WithField("purged", n).Info("expired_tokens_purged")
			fmt.Fprintf(a.stdout, "purged %d expired tokens\n", n)
			return nil
		},
	}
}

func openDatabase(dsn string, log *logrus.Logger) (*gorm.DB, func(), error) {
	conn, err := db.Open(dsn, log)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return conn, closeDB, nil
}
