package main

import "repdata/cmd"

func main() {
	cmd.Execute()
}
