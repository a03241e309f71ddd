package main

import (
	"log"

	tool "github.com/orgstack/identity-admin/internal/tools/obscheck"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
