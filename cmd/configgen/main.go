package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/danmuck/bitsctl/internal/config"
)

const defaultPath = "cmd/bitsctl/config.toml"

func main() {
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	printTemplate := flag.Bool("print", false, "print the config template to stdout")
	flag.Parse()

	if *printTemplate {
		fmt.Print(config.Template())
		return
	}

	if *validate {
		if _, err := config.Load(*input); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated bitsctl config at %s", *input)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote bitsctl config template to %s", *output)
}
