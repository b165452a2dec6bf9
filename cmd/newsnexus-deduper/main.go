package main

import (
	"os"

	"github.com/costa-rica/NewsNexusDeduper01/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
