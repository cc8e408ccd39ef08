package cmds

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/deepwide/pkg/auth"
	"github.com/go-go-golems/deepwide/pkg/session"
	"github.com/go-go-golems/deepwide/pkg/store"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deepwide",
		Short: "deepwide is a streaming research chat client",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return initLogger(viper.GetString("log-level"))
		},
	}

	rootCmd.PersistentFlags().String("api-url", "http://localhost:8000", "research backend base URL")
	rootCmd.PersistentFlags().String("db", "deepwide.db", "sqlite database path")
	rootCmd.PersistentFlags().String("user", "local", "user id store operations run as")
	rootCmd.PersistentFlags().String("token", "", "bearer token for the research backend")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose event router logging")

	viper.SetEnvPrefix("DEEPWIDE")
	// flag names are hyphenated, env vars are underscored
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(NewChatCmd())
	rootCmd.AddCommand(NewSessionsCmd())

	return rootCmd
}

func initLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %s", level)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}).Level(lvl).With().Timestamp().Logger()
	return nil
}

// newManager assembles the store, auth provider and session manager from the
// resolved configuration.
func newManager(options ...session.ManagerOption) (*session.ManagerImpl, *store.SQLiteStore, *auth.StaticProvider, error) {
	st, err := store.NewSQLiteStore(viper.GetString("db"))
	if err != nil {
		return nil, nil, nil, err
	}
	provider := auth.NewStaticProvider(viper.GetString("user"), viper.GetString("token"))
	manager := session.NewManager(st, provider, options...)
	return manager, st, provider, nil
}
