package main

import "ferrocp/cmd"

func main() {
	cmd.Execute()
}
