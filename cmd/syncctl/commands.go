package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/pkg/client"
	apperrors "github.com/Ezyrone/TP-Final-2/pkg/errors"
	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in: run `syncctl login` first")

type loader func() (settings, error)

func newLoginCmd(load loader) *cobra.Command {
	var pseudo, secret string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Open a session and store it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			session, err := client.Login(cmd.Context(), nil, s.Server, pseudo, secret)
			if err != nil {
				return err
			}
			if err := s.sessions().Save(session); err != nil {
				return fmt.Errorf("store session: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", session.Pseudo)
			return err
		},
	}
	cmd.Flags().StringVar(&pseudo, "pseudo", "", "pseudo (3-20 characters)")
	cmd.Flags().StringVar(&secret, "secret", "", "secret (6-50 characters)")
	cmd.MarkFlagRequired("pseudo")
	cmd.MarkFlagRequired("secret")
	return cmd
}

func newLogoutCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			if err := s.sessions().Clear(); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return err
		},
	}
}

func newWatchCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the shared list live until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			if _, ok, err := s.sessions().Load(); err != nil {
				return err
			} else if !ok {
				return errNotLoggedIn
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := newManager(s)
			go m.Run(ctx)

			view := client.NewProjection()
			for ev := range m.Events() {
				view.Apply(ev, time.Now())
				printEvent(cmd.OutOrStdout(), ev, view)
			}
			return nil
		},
	}
}

func newAddCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "add <content>",
		Short: "Add an item to the shared list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := domain.SanitizeContent(args[0])
			if err != nil {
				return errors.New(apperrors.Wrap(err).Message)
			}
			return runCommand(cmd, load, protocol.CreateItem{Content: args[0]}, createdBy(content))
		},
	}
}

func newEditCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <content>",
		Short: "Replace the content of one of your items",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return runCommand(cmd, load, protocol.UpdateItem{ID: id, Content: args[1]},
				func(_ client.Session, ev protocol.Event) bool {
					e, ok := ev.(protocol.ItemUpdated)
					return ok && e.Item.ID == id
				})
		},
	}
}

func newRemoveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete one of your items",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return runCommand(cmd, load, protocol.DeleteItem{ID: id},
				func(_ client.Session, ev protocol.Event) bool {
					e, ok := ev.(protocol.ItemDeleted)
					return ok && e.ID == id
				})
		},
	}
}

// createdBy matches the item_created frame of our own create: same owner and
// the content as the hub stores it. Another tab of the same user creating a
// different item does not match.
func createdBy(content string) func(client.Session, protocol.Event) bool {
	return func(session client.Session, ev protocol.Event) bool {
		e, ok := ev.(protocol.ItemCreated)
		return ok && e.Item.OwnerPseudo == session.Pseudo && e.Item.Content == content
	}
}

func newManager(s settings) *client.Manager {
	return client.NewManager(client.Config{
		ServerURL:  s.Server,
		MonitorURL: s.Monitor,
		Logger:     s.logger(),
	}, s.sessions())
}

// runCommand connects with the stored session, sends command and waits
// until confirmed returns true for a hub event or the hub reports an error.
func runCommand(cmd *cobra.Command, load loader, command protocol.Command, confirmed func(client.Session, protocol.Event) bool) error {
	s, err := load()
	if err != nil {
		return err
	}
	session, ok, err := s.sessions().Load()
	if err != nil {
		return err
	}
	if !ok {
		return errNotLoggedIn
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), s.Timeout)
	defer cancel()

	m := newManager(s)
	go m.Run(ctx)
	if err := m.Send(command); err != nil {
		return err
	}

	for ev := range m.Events() {
		switch e := ev.(type) {
		case client.NoticeEvent:
			return errors.New(e.Message)
		case client.ServerEvent:
			if confirmed(session, e.Event) {
				printConfirmation(cmd.OutOrStdout(), e.Event)
				return nil
			}
		}
	}
	return fmt.Errorf("no confirmation from %s within %s", s.Server, s.Timeout)
}

func printConfirmation(w io.Writer, ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.ItemCreated:
		fmt.Fprintf(w, "Added %s\n", e.Item.ID)
	case protocol.ItemUpdated:
		fmt.Fprintf(w, "Updated %s\n", e.Item.ID)
	case protocol.ItemDeleted:
		fmt.Fprintf(w, "Deleted %s\n", e.ID)
	}
}

func printEvent(w io.Writer, ev client.Event, view *client.Projection) {
	switch e := ev.(type) {
	case client.StateEvent:
		switch {
		case e.State == client.Reconnecting:
			fmt.Fprintf(w, "* %s in %s (%s)\n", e.State, e.Delay, e.Reason)
		case e.Reason != "":
			fmt.Fprintf(w, "* %s (%s)\n", e.State, e.Reason)
		default:
			fmt.Fprintf(w, "* %s\n", e.State)
		}
	case client.NoticeEvent:
		fmt.Fprintf(w, "! %s\n", e.Message)
	case client.SnapshotEvent:
		fmt.Fprintf(w, "* resynced: %d connection(s), %d user(s)\n", e.Snapshot.Connections, len(e.Snapshot.Users))
	case client.ServerEvent:
		switch se := e.Event.(type) {
		case protocol.InitialState:
			printItems(w, view)
		case protocol.ItemCreated, protocol.ItemUpdated, protocol.ItemDeleted:
			printItems(w, view)
		case protocol.Presence:
			fmt.Fprintf(w, "* %d connection(s):", se.Connections)
			for _, u := range se.Users {
				fmt.Fprintf(w, " %s(%d)", u.Pseudo, u.Connections)
			}
			fmt.Fprintln(w)
		case protocol.SyncLog:
			fmt.Fprintf(w, "[%s] %s\n", se.Entry.Timestamp.Local().Format("15:04:05"), se.Entry.Message)
		case protocol.Pong:
			if view.Latency > 0 {
				fmt.Fprintf(w, "* latency %s\n", view.Latency)
			}
		}
	}
}

func printItems(w io.Writer, view *client.Projection) {
	items := view.SortedItems()
	fmt.Fprintf(w, "--- %d item(s), %d processed ---\n", len(items), view.Metrics.TotalMessagesProcessed)
	for _, item := range items {
		fmt.Fprintf(w, "%s  %-30s  %s\n", item.ID, item.Content, item.OwnerPseudo)
	}
}
