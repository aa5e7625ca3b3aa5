package main

import (
	"fyne.io/fyne/v2/app"

	"github.com/phpmtseed/phpmtseed/internal/ui"
)

func main() {
	a := app.New()
	mainApp := ui.New(a)
	mainApp.Show()
}
