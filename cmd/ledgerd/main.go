package main

import (
	"os"

	"github.com/example/wallet-ledger/cmd/ledgerd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
