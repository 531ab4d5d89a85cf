package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"pulasafe/internal/models"
	"pulasafe/internal/service"
	"pulasafe/internal/view"

	"github.com/spf13/cobra"
)

func newInboxCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.messaging.ListConversations(cmd.Context(), a.session())
			if err != nil {
				return a.readFailed(err, "No conversations to show.")
			}
			if !all {
				entries = service.DedupeByCounterpart(entries)
			}
			return a.emit(entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(w, "No messages yet.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "WITH\tTIME\tUNREAD\tLAST MESSAGE")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.CounterpartID, e.Time, e.UnreadCount, e.LastMessage)
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show every message instead of one row per person")
	return cmd
}

func printHistory(w io.Writer, me string, msgs []models.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, m := range msgs {
		who := m.SenderID
		if m.SenderID == me {
			who = "me"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.Local().Format("Jan 2 15:04"), who, m.Text)
	}
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <user-id>",
		Short: "Show the conversation with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat := view.NewChat(a.messaging, a.session, args[0], view.Topic{})
			msgs, err := chat.Load(cmd.Context())
			if err != nil {
				return a.readFailed(err, "No messages to show.")
			}
			return a.emit(msgs, func(w io.Writer) {
				printHistory(w, a.session().UserID(), msgs)
			})
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	var alertType, location string
	cmd := &cobra.Command{
		Use:   "send <user-id> <text...>",
		Short: "Send a direct message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var topic view.Topic
			if alertType != "" {
				topic.AlertType = &alertType
			}
			if location != "" {
				topic.Location = &location
			}

			chat := view.NewChat(a.messaging, a.session, args[0], topic)
			msg, err := chat.Send(cmd.Context(), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if msg == nil {
				fmt.Fprintln(a.out, "Nothing to send.")
				return nil
			}
			return a.emit(msg, func(w io.Writer) {
				fmt.Fprintf(w, "Sent #%d\n", msg.ID)
			})
		},
	}
	cmd.Flags().StringVar(&alertType, "alert-type", "", "Incident type the message is about")
	cmd.Flags().StringVar(&location, "location", "", "Incident location the message is about")
	return cmd
}
