package main

import "github.com/recallhq/recall/internal/cli"

func main() {
	cli.Execute()
}
