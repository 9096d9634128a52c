package main

import (
	"payables-engine/internal/adapters/cli"
)

func main() {
	cli.Execute()
}
