package main

import (
	"FreeFM/cmd"
)

func main() {
	cmd.Execute()
}
