package main

import "github.com/dkessler/cratekeeper/cmd"

func main() {
	cmd.Execute()
}
