package main

import (
	"context"
	"os"
)

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.teardown(context.Background())
	if err != nil {
		os.Exit(1)
	}
}
