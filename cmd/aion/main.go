package main

import "github.com/rustyeddy/aion/internal/cli"

func main() {
	cli.Execute()
}
