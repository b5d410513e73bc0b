// Command dide runs the DiDe authentication service.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/aussiebroadwan/dide/internal/auth/app"
)

func main() {
	showVersion := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.BuildVersion)
		return
	}

	a, err := app.New(app.LoadConfig())
	if err != nil {
		log.Fatalf("dide: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("dide: %v", err)
	}
}
