// Command similarweb-ingest runs ingestion from the command line.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
