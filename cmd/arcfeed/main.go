package main

import "github.com/k2fort/arcfeed/internal/cli"

func main() {
	cli.Execute()
}
