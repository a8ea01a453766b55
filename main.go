package main

import "github.com/derickschaefer/timefilter/cmd"

func main() {
	cmd.Execute()
}
