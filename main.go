package main

import "github.com/josephlewis42/cowsh/cmd"

func main() {
	cmd.Execute()
}
