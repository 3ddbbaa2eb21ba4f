package main

import (
	"settlement-times/internal/cli"
)

func main() {
	cli.Execute()
}
