package main

import "github.com/crystaldolphin/waypoint/cmd"

func main() {
	cmd.Execute()
}
