package main

import "github.com/notargets/growcfd/cmd"

func main() {
	cmd.Execute()
}
