package main

import "github.com/felixgeelhaar/scout/cmd/scout/cli"

func main() {
	cli.Execute()
}
