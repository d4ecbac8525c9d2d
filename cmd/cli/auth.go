package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	loginID       string
	loginPassword string

	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Log in with a PEN or email address",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the stored token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
)

func init() {
	loginCmd.Flags().StringVar(&loginID, "login", "", "PEN or email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (default $KARMASRI_PASSWORD)")
	_ = loginCmd.MarkFlagRequired("login")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	password := loginPassword
	if password == "" {
		password = os.Getenv("KARMASRI_PASSWORD")
	}
	if password == "" {
		return errors.New("--password or KARMASRI_PASSWORD required")
	}

	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.Login(cmd.Context(), loginID, password)
	if err != nil {
		return err
	}
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := saveToken(path, tokenData{Token: res.Token, PEN: res.Officer.PEN}); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s, %s) until %s\n",
		res.Officer.Name, res.Officer.PEN, res.Officer.Role, res.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	path, err := tokenPath()
	if err != nil {
		return err
	}
	if s.Token != "" {
		if err := s.Logout(cmd.Context()); err != nil {
			// the server may have already expired it; drop it locally anyway
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		}
	}
	if err := clearToken(path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	me, err := s.Me(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), me)
}
