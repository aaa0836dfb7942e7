package main

import "github.com/dyike/finreact/internal/cli"

func main() {
	cli.Run()
}
