package main

import "github.com/nabeeladzan/lxfu/cmd"

func main() {
	cmd.Execute()
}
