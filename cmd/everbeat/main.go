package main

import "github.com/satindergrewal/everbeat/internal/cli"

func main() {
	cli.Execute()
}
