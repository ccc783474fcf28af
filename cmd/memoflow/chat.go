package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"memoflow/internal/memo"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant",
	Long: `Talk to the assistant.

Replies that look like memos are offered for saving. An empty line or
Ctrl-D exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if history, err := a.chat.History(ctx); err == nil {
			for _, msg := range history {
				printTranscriptLine(msg.Role, msg.Content)
			}
		} else {
			printWarning("Could not load chat history: %v", err)
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, colorize(colorBold, "> "))
			if !scanner.Scan() {
				break
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				break
			}

			ex, err := a.chat.Send(ctx, text)
			if err != nil {
				printError("%v", err)
				continue
			}
			printTranscriptLine("ai", ex.Reply)

			if ex.Draft != nil {
				if confirmDraft(scanner, *ex.Draft) {
					m, err := a.chat.ConfirmDraft(ctx, *ex.Draft)
					if err != nil {
						printError("%v", err)
						continue
					}
					printSuccess("Saved memo %s", m.ID)
				}
			}
		}
		return scanner.Err()
	},
}

func printTranscriptLine(role, content string) {
	label := colorize(colorCyan, "you")
	if role == "ai" {
		label = colorize(colorGreen, " ai")
	}
	fmt.Printf("%s  %s\n", label, content)
}

func confirmDraft(scanner *bufio.Scanner, d memo.Draft) bool {
	line := d.Content
	if d.DueDate != nil && *d.DueDate != "" {
		line += " (due " + *d.DueDate + ")"
	}
	printStatus("Memo", "%s", line)
	fmt.Fprint(os.Stderr, "Save it? [y/N] ")
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
