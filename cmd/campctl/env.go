package main

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/dmitrijs2005/yelpcamp/internal/server/config"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/yelpcamp/internal/server/services"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type migrator interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	MigrationStatus(ctx context.Context, db *sql.DB) error
}

type registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

// env holds everything the commands touch outside the process, so tests
// can swap the database and the terminal.
type env struct {
	dsn          string
	out          io.Writer
	in           *bufio.Reader
	stdinFd      int
	openDB       func(ctx context.Context, dsn string) (*sql.DB, error)
	migrator     migrator
	newRegistrar func(db *sql.DB) registrar
	readPassword func(fd int) ([]byte, error)
}

func defaultEnv() *env {
	cfg := config.LoadEnvConfig()
	rm := repomanager.NewPostgresRepositoryManager()

	return &env{
		dsn:      cfg.DatabaseDSN,
		out:      os.Stdout,
		in:       bufio.NewReader(os.Stdin),
		stdinFd:  int(os.Stdin.Fd()),
		openDB:   repomanager.OpenDB,
		migrator: rm,
		newRegistrar: func(db *sql.DB) registrar {
			return services.NewUserService(db, rm)
		},
		readPassword: term.ReadPassword,
	}
}

func newRootCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "campctl",
		Short:         "Operate a YelpCamp deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(e.out)
	cmd.PersistentFlags().StringVarP(&e.dsn, "dsn", "d", e.dsn, "Postgres connection string (defaults to DB_URL)")

	cmd.AddCommand(
		migrateCmd(e),
		userCmd(e),
	)
	return cmd
}

// withDB opens the database for the duration of fn.
func (e *env) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := e.openDB(ctx, e.dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
