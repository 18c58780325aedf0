package main

import "github.com/provalabs/prova/cmd"

func main() {
	cmd.Execute()
}
