package main

import (
	"os"

	"pitchside.news/internews/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
