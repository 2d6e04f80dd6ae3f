package main

import "cnc-frame-wizard/internal/cli"

func main() {
	cli.Execute()
}
