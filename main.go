package main

import "github.com/qrave1/RoomMeet/cmd"

func main() {
	cmd.Execute()
}
