package main

import "syndrrel/src/cli"

func main() {
	cli.Execute()
}
