// stemsep/cmd/stemsep-desktop/main.go
package main

import (
	"embed"

	"stemsep/desktop"

	"github.com/apex/log"
)

//go:embed frontend/index.html
var appAssets embed.FS

func main() {
	app, err := desktop.NewWithAssets(appAssets)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}

	if err := app.Run(); err != nil {
		log.WithError(err).Fatal("Application exited with an error")
	}
}
