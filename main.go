package main

import "github.com/youcefh/backsnap/cmd"

func main() {
	cmd.Execute()
}
