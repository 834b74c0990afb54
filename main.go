package main

import "github.com/naka-gawa/team-pulse/cmd"

func main() {
	cmd.Execute()
}
