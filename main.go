package main

import "github.com/chrisdamba/slawatch/cmd"

func main() {
	cmd.Execute()
}
