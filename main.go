package main

import "github.com/svcsim/svcsim/cmd"

func main() {
	cmd.Execute()
}
