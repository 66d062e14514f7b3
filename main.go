package main

import "github.com/Tiliavir/horas/cmd"

func main() {
	cmd.Execute()
}
