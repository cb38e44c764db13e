package main

import "github.com/kozaktomas/suraksha/cmd"

func main() {
	cmd.Execute()
}
