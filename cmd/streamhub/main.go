package main

import (
	"log"

	"streamhub/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("streamhub: %v", err)
	}
}
