package main

import "github.com/santiagomed/patchwork/cli"

func main() {
	cli.Execute()
}
