package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/phucnh/studiochat-client/internal/app"
	"github.com/phucnh/studiochat-client/internal/chat"
	"github.com/phucnh/studiochat-client/internal/proto"
)

var (
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	nameStyle    = lipgloss.NewStyle().Bold(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	unreadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	selfStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	peerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("84"))
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func renderConversations(list []chat.Conversation, selfID string) string {
	var b strings.Builder
	for _, c := range list {
		name := c.Name
		if name == "" {
			partner := chat.ResolvePartner(c, selfID)
			name = partner.Name
			if name == "" {
				name = partner.ID
			}
		}
		if name == "" {
			name = "(unknown)"
		}

		line := nameStyle.Render(name)
		if c.BookingID != "" {
			line += " " + keyStyle.Render("[booking "+c.BookingID+"]")
		}
		if c.UnreadCount > 0 {
			line += " " + unreadStyle.Render(fmt.Sprintf("(%d unread)", c.UnreadCount))
		}
		b.WriteString(line + "\n")
		b.WriteString("  " + keyStyle.Render(c.CanonicalID) + "\n")

		if c.LastMessage != nil {
			preview := c.LastMessage.Content
			if len(preview) > 60 {
				preview = preview[:57] + "..."
			}
			b.WriteString("  " + previewStyle.Render(preview) + "\n")
		}
	}
	return b.String()
}

func renderMessages(msgs []chat.Message, selfID string) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(renderMessage(m, selfID) + "\n")
	}
	return b.String()
}

func renderMessage(m chat.Message, selfID string) string {
	who := m.FromUserID
	style := peerStyle
	if m.FromUserID == selfID {
		who = "me"
		style = selfStyle
	} else if m.FromUser != nil && m.FromUser.Name != "" {
		who = m.FromUser.Name
	}

	stamp := ""
	if !m.CreatedAt.IsZero() {
		stamp = timeStyle.Render(m.CreatedAt.Local().Format("15:04")) + " "
	}

	read := ""
	if !m.IsRead && m.ToUserID == selfID {
		read = " " + unreadStyle.Render("*")
	}

	return stamp + style.Render(who) + ": " + m.Content + read
}

// printIncoming echoes reconciled newMessage events to stdout. Registered
// alongside the reconciler's own handler; both run on the read loop.
func printIncoming(a *app.App) {
	selfID := a.Self().ID
	a.Realtime().On(proto.EventNewMessage, func(_ string, data json.RawMessage) {
		m, err := chat.DecodeMessage(data)
		if err != nil {
			return
		}
		fmt.Println(renderMessage(m, selfID))
	})
}
