package main

import "github.com/routewarden/routewarden/cmd"

func main() {
	cmd.Execute()
}
