package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"memoflow/internal/config"
	"memoflow/internal/memo"
	"memoflow/internal/memos"
)

// --- sync ---

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge memos extracted from the chat transcript into the store",
	Long: `Merge memos extracted from the chat transcript into the store.

One pass by default. With --watch the pass repeats on an interval until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if watch {
			poll := time.Duration(a.cfg.Sync.PollSeconds) * time.Second
			fmt.Fprintf(os.Stderr, "watching, pass every %s\n", poll)
			memos.NewWorker(a.reconciler, poll).Run(ctx)
			return nil
		}

		res, err := a.reconciler.Sync(ctx)
		if err != nil {
			return err
		}
		switch res.Skipped {
		case memos.SkipNoUser:
			printWarning("Skipped: no user identity")
		case memos.SkipInFlight:
			printWarning("Skipped: a pass is already running")
		case memos.SkipCooldown:
			printWarning("Skipped: a pass just completed")
		default:
			printSuccess("Synced: %d new, %d total", res.Inserted, len(res.Memos))
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("watch", false, "keep syncing on an interval")
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List memos",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		category, _ := cmd.Flags().GetString("category")
		sortBy, _ := cmd.Flags().GetString("sort")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		list, err := a.memoStore.List(cmd.Context())
		if err != nil {
			return err
		}

		shown := filterMemos(list, filter, category)
		sortMemos(shown, sortBy)

		if len(shown) == 0 {
			fmt.Println("no memos")
			return nil
		}
		for _, m := range shown {
			fmt.Println(formatMemo(m))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().String("filter", "open", "which memos to show: all, open, done")
	listCmd.Flags().String("category", "", "only show this category")
	listCmd.Flags().String("sort", "created", "sort order: created, due")
}

func filterMemos(list []memo.Memo, filter, category string) []memo.Memo {
	var out []memo.Memo
	for _, m := range list {
		switch filter {
		case "done":
			if !m.IsCompleted {
				continue
			}
		case "all":
		default:
			if m.IsCompleted {
				continue
			}
		}
		if category != "" && !strings.EqualFold(m.Category, category) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func sortMemos(list []memo.Memo, sortBy string) {
	if sortBy != "due" {
		return // created order comes from the store, newest first
	}
	sort.SliceStable(list, func(i, j int) bool {
		di, dj := list[i].DueDate, list[j].DueDate
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return *di < *dj
	})
}

func formatMemo(m memo.Memo) string {
	box := "[ ]"
	if m.IsCompleted {
		box = colorize(colorGreen, "[x]")
	}
	line := fmt.Sprintf("%s %s", box, m.Content)
	if m.DueDate != nil && *m.DueDate != "" {
		line += colorize(colorDim, " due "+*m.DueDate)
	}
	line += " " + colorize(priorityColor(m.Priority), m.Priority)
	line += colorize(colorCyan, " #"+m.Category)
	line += colorize(colorDim, "  "+m.ID)
	return line
}

// --- add / edit / done / rm ---

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a memo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dueFlag, _ := cmd.Flags().GetString("due")
		priority, _ := cmd.Flags().GetString("priority")
		category, _ := cmd.Flags().GetString("category")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var due *string
		if dueFlag != "" {
			due = &dueFlag
		}
		m, err := a.memoSvc.Add(cmd.Context(), args[0], due, priority, category)
		if err != nil {
			return err
		}
		printSuccess("Added %s", m.ID)
		return nil
	},
}

func init() {
	addCmd.Flags().String("due", "", "due date (YYYY-MM-DD)")
	addCmd.Flags().String("priority", "", "priority: HIGH, MEDIUM, LOW")
	addCmd.Flags().String("category", "", "category: WORK, PLANNING, HOBBY, USER, GENERAL")
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <text>",
	Short: "Replace a memo's text",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.memoSvc.Edit(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Updated %s", args[0])
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle a memo's completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		m, err := a.memoStore.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := a.memoSvc.ToggleComplete(cmd.Context(), m.ID, m.IsCompleted); err != nil {
			return err
		}
		if m.IsCompleted {
			printSuccess("Reopened %s", m.ID)
		} else {
			printSuccess("Completed %s", m.ID)
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a memo permanently",
	Long: `Delete a memo permanently.

The originating chat messages are removed too, and the memo is excluded
from future syncs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.memoSvc.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("Deleted %s", args[0])
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
