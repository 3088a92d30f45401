package main

import "github.com/Digital-Shane/kometa-resolve/internal/cmd"

func main() {
	cmd.Execute()
}
