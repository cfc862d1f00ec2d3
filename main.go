package main

import "github.com/ValgulNecron/kasuki-sub000/cmd"

func main() {
	cmd.Execute()
}
