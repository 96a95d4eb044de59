// Command animals-sync lists every animal, fetches their details, fixes up
// the friends field and sends them home in batches.
package main

import "github.com/Sternrassler/animals-client/cmd/animals-sync/cmd"

func main() {
	cmd.Execute()
}
