package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phucnh/studiochat-client/internal/chat"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Authenticate and persist the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprint(os.Stderr, "password: ")
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(password, "\r\n")

		if err := a.Login(cmd.Context(), args[0], password); err != nil {
			return err
		}
		fmt.Println("logged in as", a.Self().Name)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the persisted session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil
	},
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"ls"},
	Short:   "List conversations, most recently active first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		svc := a.Service()
		if err := svc.LoadConversations(cmd.Context()); err != nil {
			return err
		}

		list := svc.Conversations()
		if len(list) == 0 {
			fmt.Println("no conversations")
			return nil
		}
		fmt.Print(renderConversations(list, a.Self().ID))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <conversation>",
	Short: "Show the message history of one conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		svc := a.Service()
		if err := svc.LoadMessages(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Print(renderMessages(svc.Messages(args[0]), a.Self().ID))
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <user-or-conversation> <text...>",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// A best-effort realtime connection lets the recipient's live
		// session see the message immediately. A failed connect is fine;
		// the send itself only needs REST.
		_ = a.Connect(cmd.Context())

		target := args[0]
		content := strings.Join(args[1:], " ")
		svc := a.Service()

		// The target may name a conversation instead of a user; in that
		// case the recipient is resolved from the conversation itself.
		_ = svc.LoadConversations(cmd.Context())
		msg, err := svc.SendToConversation(cmd.Context(), target, content)
		if errors.Is(err, chat.ErrNoRecipient) {
			msg, err = svc.Send(cmd.Context(), target, content)
		}
		if err != nil {
			return err
		}
		fmt.Println("sent", msg.ID)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream incoming messages live",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if err := a.Connect(ctx); err != nil {
			return err
		}

		svc := a.Service()
		if err := svc.LoadConversations(ctx); err != nil {
			return err
		}

		fmt.Println("watching for messages, Ctrl+C to exit")
		printIncoming(a)

		// Stdin lines reply to the most recent conversation.
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				list := svc.Conversations()
				if len(list) == 0 {
					fmt.Println("no conversation to reply to yet")
					continue
				}
				if _, err := svc.SendToConversation(ctx, list[0].CanonicalID, text); err != nil {
					fmt.Fprintln(os.Stderr, "send:", err)
				}
			}
		}()

		<-ctx.Done()
		return nil
	},
}
