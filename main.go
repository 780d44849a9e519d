package main

import "straddle-stream/internal/cli"

func main() {
	cli.Execute()
}
