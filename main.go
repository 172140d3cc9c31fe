package main

import "rate-monitor/internal/cli"

func main() {
	cli.Execute()
}
