package main

import "lineparse/internal/cli"

func main() {
	cli.Execute()
}
