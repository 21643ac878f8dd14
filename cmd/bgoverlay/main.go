package main

import "github.com/smoogipooo/osu--Background-Overlay/cmd/bgoverlay/commands"

func main() {
	commands.Execute()
}
