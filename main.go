package main

import "github.com/facegallery/facegallery/cmd"

func main() {
	cmd.Execute()
}
