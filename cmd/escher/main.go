package main

import "github.com/forestrie/go-escher/cmd/escher/cmd"

func main() {
	cmd.Execute()
}
