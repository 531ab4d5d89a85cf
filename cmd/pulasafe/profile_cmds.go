package main

import (
	"fmt"
	"io"

	"pulasafe/internal/models"

	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile, or rename yourself with --name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				p   *models.Profile
				err error
			)
			if cmd.Flags().Changed("name") {
				p, err = a.profile.Rename(cmd.Context(), a.session(), name)
			} else {
				p, err = a.profile.Get(cmd.Context(), a.session())
			}
			if err != nil {
				return err
			}
			return a.emit(p, func(w io.Writer) {
				fmt.Fprintf(w, "name:  %s\nemail: %s\nphone: %s\n", p.FullName, p.Email, p.PhoneNumber)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New full name")
	return cmd
}
