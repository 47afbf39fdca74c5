package main

import "github.com/davidroman0O/nairaland-archiver/cmd"

func main() {
	cmd.Execute()
}
