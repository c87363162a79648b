// main is the entry point of the ratingfit CLI.
package main

import (
	"os"

	"github.com/huangsam/ratingfit/cmd"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/iocache"
)

func main() {
	cmd.SetStoreManager(iocache.Manager)

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseStores()

	if err != nil {
		contract.Log().WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
