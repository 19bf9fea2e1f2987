package main

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/yelpcamp/internal/server/services"
	"github.com/spf13/cobra"
)

var errPasswordMismatch = errors.New("passwords do not match")

func userCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var username, email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register an account, prompting for its password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			var err error
			if username == "" {
				if username, err = e.prompt(w, "Username"); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = e.prompt(w, "Email"); err != nil {
					return err
				}
			}

			pw, err := e.newPassword(w)
			if err != nil {
				return err
			}

			return e.withDB(cmd.Context(), func(db *sql.DB) error {
				u, err := e.newRegistrar(db).Register(cmd.Context(), services.RegisterInput{
					Username: username,
					Email:    email,
					Password: pw,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "created user %s (%s)\n", u.UserName, u.ID)
				return nil
			})
		},
	}
	create.Flags().StringVarP(&username, "username", "u", "", "account name")
	create.Flags().StringVarP(&email, "email", "e", "", "account email")

	cmd.AddCommand(create)
	return cmd
}

func (e *env) prompt(w io.Writer, label string) (string, error) {
	if _, err := fmt.Fprint(w, label+"\n> "); err != nil {
		return "", err
	}
	line, err := e.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// newPassword reads the password twice without echo.
func (e *env) newPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Enter password: ")
	first, err := e.readPassword(e.stdinFd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}

	fmt.Fprint(w, "Repeat password: ")
	second, err := e.readPassword(e.stdinFd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}

	if !bytes.Equal(first, second) {
		return "", errPasswordMismatch
	}
	return string(first), nil
}
