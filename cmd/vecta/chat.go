package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"vecta-client/internal/bootstrap"
	"vecta-client/internal/config"
	"vecta-client/internal/model"
	"vecta-client/internal/realtime"
	"vecta-client/internal/session"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	userColor      = color.New(color.FgCyan)
	assistantColor = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed)
	noticeColor    = color.New(color.FgYellow)
	labelColor     = color.New(color.FgMagenta)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive advisory chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		container, err := bootstrap.NewContainer(cfg)
		if err != nil {
			return err
		}
		defer container.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		container.Start(ctx)

		go renderLoop(ctx, container.Store)

		container.Realtime.Connect(ctx)
		noticeColor.Println("Connecting... type a message and press enter. /new starts over, /quit exits.")

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
				continue
			case line == "/quit":
				return nil
			case line == "/new":
				container.Realtime.Disconnect()
				container.Realtime.Connect(ctx)
				noticeColor.Println("Started a new session.")
			default:
				if err := container.Realtime.SendUserMessage(line); err != nil {
					if errors.Is(err, realtime.ErrNotConnected) {
						noticeColor.Println(err.Error())
						continue
					}
					return err
				}
			}
		}
		return scanner.Err()
	},
}

// renderLoop prints log entries as the store changes. Streamed assistant
// content is printed incrementally, a delta per update.
func renderLoop(ctx context.Context, store *session.Store) {
	updates, err := store.Subscribe(ctx)
	if err != nil {
		return
	}

	states := make(map[string]*renderState)

	for msg := range updates {
		var update session.Update
		if err := json.Unmarshal(msg.Payload, &update); err != nil {
			msg.Ack()
			continue
		}
		msg.Ack()

		switch update.Entity {
		case session.EntityMessages:
			for _, m := range store.Messages() {
				renderMessage(m, states)
			}
		case session.EntityStatus:
			// The log renders inline; status only matters when it goes bad.
			if status := store.Status(); status == model.StatusError {
				errorColor.Printf("\n[%s] %s\n", status, store.LastError())
			}
		}
	}
}

type renderState struct {
	printed int // chars of content already printed
	closed  bool
}

func renderMessage(m model.ChatMessage, states map[string]*renderState) {
	st, seen := states[m.Id]
	if !seen {
		st = &renderState{}
		states[m.Id] = st
	}
	if st.closed {
		return
	}

	switch m.Type {
	case model.MessageTypeUser:
		userColor.Printf("you> %s\n", m.Content)
		st.closed = true
	case model.MessageTypeAssistant:
		if !seen {
			assistantColor.Print("vecta> ")
		}
		if st.printed < len(m.Content) {
			assistantColor.Print(m.Content[st.printed:])
			st.printed = len(m.Content)
		}
		if !m.IsStreaming {
			fmt.Println()
			st.closed = true
		}
	case model.MessageTypeError:
		errorColor.Printf("error> %s\n", m.Content)
		st.closed = true
	default:
		labelColor.Printf("[%s] %s\n", m.Type, m.Content)
		st.closed = true
	}
}
