package main

import "github.com/jmehdipour/officer-portal/cmd"

func main() {
	cmd.Execute()
}
