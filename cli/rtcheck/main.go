package main

import (
	"os"

	rtcheckcmder "github.com/papercomputeco/rtcheck/cmd/rtcheck"
)

func main() {
	cmd := rtcheckcmder.NewRtcheckCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
