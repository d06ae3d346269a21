package main

import (
	"log"

	"github.com/eduhub/marketplace-api/app"
)

func main() {
	// setup and run app
	if err := app.SetupAndRunServer(); err != nil {
		log.Fatal(err)
	}
}
