package main

import "github.com/aalvaropc/headline/internal/cli"

func main() {
	cli.Execute()
}
