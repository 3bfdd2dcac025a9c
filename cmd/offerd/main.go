package main

import "github.com/LeJamon/offerd/internal/cli"

func main() {
	cli.Execute()
}
