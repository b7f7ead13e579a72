package main

import "loopy/cmd"

func main() {
	cmd.Execute()
}
