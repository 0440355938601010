package main

import (
	"os"

	"github.com/newsdesk-cms/newsdesk/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
