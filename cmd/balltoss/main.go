package main

import "github.com/mcoot/balltoss/internal/cli"

func main() {
	cli.Execute()
}
