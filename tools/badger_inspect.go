package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

// Debug inspector for the on-disk message store. Opens the database
// read-only and dumps every record under the given prefix.
func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Owner", "Time", "Message ID", "Vanish", "Text"})
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

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			// Skip the id index entries, they only hold primary keys
			if strings.HasPrefix(rawKey, "id:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				var record struct {
					ID          string `json:"id"`
					OwnerID     string `json:"owner_id"`
					Text        string `json:"text"`
					At          int64  `json:"at"`
					VanishAfter *int64 `json:"vanish_after"`
				}
				if err := json.Unmarshal(v, &record); err != nil {
					// Keep scanning, a single corrupt value should not stop the dump
					fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
					return nil
				}

				vanish := "-"
				if record.VanishAfter != nil {
					vanish = time.Duration(*record.VanishAfter).String()
				}

				displayID := record.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				table.Append([]string{
					rawKey,
					record.OwnerID,
					time.Unix(0, record.At).Local().Format("15:04:05"),
					displayID,
					vanish,
					record.Text,
				})
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
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed writer can leave the value log in need of truncation,
		// reopen writable once so badger can repair, then go back to read-only
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
