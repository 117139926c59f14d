package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	chatSession string
	chatTrace   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the concierge on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.cleanup()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Type a message, or \"exit\" to quit.")
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			switch strings.ToLower(line) {
			case "":
				continue
			case "exit", "quit":
				return nil
			}

			reply, err := a.chat.Reply(ctx, chatSession, line)
			if err != nil {
				return err
			}
			if chatTrace {
				for _, entry := range reply.Trace {
					fmt.Fprintln(out, "  "+entry)
				}
			}
			fmt.Fprintln(out, reply.Text)
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "local", "conversation session id")
	chatCmd.Flags().BoolVar(&chatTrace, "trace", false, "print the run trace before each reply")
}
