package main

import "github.com/nextlevelbuilder/larkbot/cmd"

func main() {
	cmd.Execute()
}
