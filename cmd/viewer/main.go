// Command viewer prints the persisted messages of a channel as a table.
// It opens the database read-only so it can run next to a live server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to badger DB")
	channel := flag.String("channel", "", "Channel ID to dump (empty scans all)")
	limit := flag.Int("limit", 100, "Maximum rows to print")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("No database path: set -db or BADGER_FILEPATH")
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	header := color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf(" Messages (%s) ", *dbPath))
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Channel", "Time", "User", "Lang", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	prefix := "msg:"
	if *channel != "" {
		prefix = "msg:" + *channel + ":"
	}

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes) && rows < *limit; it.Next() {
			item := it.Item()

			err := item.Value(func(v []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(v, &msg); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				content := msg.Content
				if msg.IsDeleted {
					content = color.Gray.Render("(deleted)")
				}
				content = strings.ReplaceAll(content, "\n", " ")

				table.Append([]string{
					string(msg.ChannelID),
					msg.CreatedAt.Format("01-02 15:04:05"),
					shortID(string(msg.UserID)),
					msg.Language,
					content,
				})
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("\n%d message(s)\n", rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
