package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jhoicas/bultos-api/internal/infrastructure/postgres"
	"github.com/jhoicas/bultos-api/pkg/config"
	"github.com/jhoicas/bultos-api/pkg/logger"
)

// migrator lo que la CLI necesita de postgres.Migrator.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Close() error
}

type openFunc func() (migrator, error)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	open := func() (migrator, error) {
		return postgres.NewMigrator(cfg.DB.ConnectionString(), log)
	}
	if err := newRootCmd(open).Execute(); err != nil {
		log.Error().Err(err).Msg("migración fallida")
		os.Exit(1)
	}
}

func newRootCmd(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Migraciones del esquema de bultos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Aplica todas las migraciones pendientes",
			Args:  cobra.NoArgs,
			RunE:  withMigrator(open, func(_ *cobra.Command, m migrator, _ []string) error { return m.Up() }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revierte todas las migraciones",
			Args:  cobra.NoArgs,
			RunE:  withMigrator(open, func(_ *cobra.Command, m migrator, _ []string) error { return m.Down() }),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Aplica N migraciones (negativo revierte)",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(open, func(_ *cobra.Command, m migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n == 0 {
					return fmt.Errorf("cantidad de pasos inválida: %q", args[0])
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Fija la versión sin ejecutar migraciones",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(open, func(_ *cobra.Command, m migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("versión inválida: %q", args[0])
				}
				return m.Force(v)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Muestra la versión actual del esquema",
			Args:  cobra.NoArgs,
			RunE: withMigrator(open, func(cmd *cobra.Command, m migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			}),
		},
	)
	return root
}

// withMigrator abre el migrador, ejecuta fn y lo cierra.
func withMigrator(open openFunc, fn func(cmd *cobra.Command, m migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		m, err := open()
		if err != nil {
			return err
		}
		defer func() {
			if cerr := m.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, m, args)
	}
}
