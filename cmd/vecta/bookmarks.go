package main

import (
	"encoding/json"
	"fmt"

	"vecta-client/internal/bootstrap"
	"vecta-client/internal/config"
	"vecta-client/internal/session"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "List saved visualizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := bootstrap.NewContainer(config.Load())
		if err != nil {
			return err
		}
		defer container.Close()
		container.Bridge.Load()

		bookmarks := container.Store.Bookmarks()
		if len(bookmarks) == 0 {
			fmt.Println("No bookmarks saved.")
			return nil
		}
		for _, b := range bookmarks {
			color.New(color.Bold).Printf("%s  %s\n", b.Id, b.Title)
			if b.Description != "" {
				fmt.Printf("    %s\n", b.Description)
			}
			fmt.Printf("    %s chart, saved %s\n", b.ChartType, b.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var bookmarksRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := bootstrap.NewContainer(config.Load())
		if err != nil {
			return err
		}
		defer container.Close()
		container.Bridge.Load()

		if !container.Store.RemoveBookmark(args[0]) {
			return fmt.Errorf("no bookmark with id %q", args[0])
		}

		// Persist synchronously; the async bridge may not get a turn before
		// this process exits.
		blob, err := json.Marshal(container.Store.Bookmarks())
		if err != nil {
			return err
		}
		if err := container.Blobs.Put(session.BookmarksKey, blob); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	bookmarksCmd.AddCommand(bookmarksRmCmd)
}
