package main

import "github.com/lucasvrm/previso/internal/cli"

func main() {
	cli.Execute()
}
