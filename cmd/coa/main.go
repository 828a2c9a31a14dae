package main

import "github.com/emrgen/coa/cmd"

func main() {
	cmd.Execute()
}
