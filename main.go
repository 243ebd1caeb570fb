package main

import (
	"sessionprobe/cmd"
)

func main() {
	cmd.Execute()
}
