package main

import (
	"fmt"
	"os"

	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser"
)

func main() {
	err := cmdparser.Nvmectl.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
