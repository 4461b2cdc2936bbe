// File: cmd/muro/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iyunix/go-muro/internal/client"
	"github.com/iyunix/go-muro/internal/domain"
)

type app struct {
	v *viper.Viper
}

func (a *app) client() *client.Client {
	return client.New(a.v.GetString("server"))
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if d := a.v.GetDuration("timeout"); d > 0 {
		return context.WithTimeout(cmd.Context(), d)
	}
	return context.WithCancel(cmd.Context())
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			list, err := a.client().ListConversations(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
			for _, c := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.DisplayTitle(), c.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func (a *app) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]",
		Short: "Start a conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			c, err := a.client().CreateConversation(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.ID)
			return nil
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <conversation-id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			c, err := a.client().RenameConversation(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s renamed to %q\n", c.ID, c.DisplayTitle())
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			return a.client().DeleteConversation(ctx, args[0])
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Print a conversation's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			msgs, err := a.client().Messages(ctx, args[0])
			if err != nil {
				return err
			}
			for _, m := range msgs {
				printMessage(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}

func (a *app) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <message>",
		Short: "Send a message and print the reply as it streams",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTurn(cmd, args[0], func(ctx context.Context, view *client.ConversationView, onChunk func(string)) (*client.Result, error) {
				return view.Send(ctx, strings.Join(args[1:], " "), onChunk)
			})
		},
	}
}

func (a *app) retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <conversation-id>",
		Short: "Regenerate the latest failed reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTurn(cmd, args[0], func(ctx context.Context, view *client.ConversationView, onChunk func(string)) (*client.Result, error) {
				return view.Retry(ctx, onChunk)
			})
		},
	}
}

type turnFunc func(ctx context.Context, view *client.ConversationView, onChunk func(string)) (*client.Result, error)

func (a *app) runTurn(cmd *cobra.Command, conversationID string, run turnFunc) error {
	ctx, cancel := a.context(cmd)
	defer cancel()

	view := client.NewConversationView(a.client(), conversationID)
	if err := view.Load(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	result, err := run(ctx, view, func(text string) { fmt.Fprint(out, text) })
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("server rejected the request (%d): %s", apiErr.Status, apiErr.Message)
		}
		return err
	}
	fmt.Fprintln(out)

	if result.Status == domain.StatusFailed {
		return fmt.Errorf("reply failed: %s (run `muro retry %s` to try again)", result.Error, conversationID)
	}
	return nil
}

func printMessage(w io.Writer, m domain.Message) {
	label := "you"
	if m.Role == domain.RoleAssistant {
		label = "muro"
	}
	fmt.Fprintf(w, "[%s] %s", label, m.Content)
	switch {
	case m.Status == domain.StatusFailed && m.ErrorMessage != nil:
		fmt.Fprintf(w, "\n  (failed: %s)", *m.ErrorMessage)
	case m.Status == domain.StatusSending:
		fmt.Fprint(w, "\n  (still generating)")
	}
	fmt.Fprint(w, "\n\n")
}
