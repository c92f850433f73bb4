package main

import "github.com/tsiemens/capgain/cmd"

func main() {
	cmd.Execute()
}
