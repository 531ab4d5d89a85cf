// Command pulasafe is the terminal client: one user, one session, the same
// accessors the mobile app drives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pulasafe/internal/config"
	"pulasafe/internal/observability"

	"github.com/spf13/cobra"
)

func main() {
	observability.SetGlobalLogger(observability.NewLogger(os.Stderr, false))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a, config.LoadConfig).ExecuteContext(ctx)
	a.close()
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// newRootCmd wires every command to a. The caller closes a once the command
// returns; cobra skips post-run hooks when RunE fails.
func newRootCmd(a *app, load func() (*config.Config, error)) *cobra.Command {
	root := &cobra.Command{
		Use:          "pulasafe",
		Short:        "Report and follow community incidents from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return a.init(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print JSON instead of text")

	root.AddCommand(
		newLoginCmd(a),
		newSignupCmd(a),
		newOAuthCmd(a),
		newResetPasswordCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newCategoriesCmd(a),
		newFeedCmd(a),
		newPostCmd(a),
		newLikeCmd(a),
		newDeleteCmd(a),
		newInboxCmd(a),
		newChatCmd(a),
		newSendCmd(a),
		newProfileCmd(a),
	)
	return root
}
