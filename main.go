package main

import (
	"fmt"
	"os"

	"github.com/jensroland/rebasebot/cmd"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		cmd.RunRebase(os.Args[1:])
		return
	}

	switch os.Args[1] {
	case "log":
		cmd.RunLog(os.Args[2:])
	case "show":
		cmd.RunShow(os.Args[2:])
	case "tools":
		cmd.RunTools(os.Args[2:])
	case "--version":
		fmt.Println("rebasebot", version)
	default:
		cmd.RunRebase(os.Args[1:])
	}
}
