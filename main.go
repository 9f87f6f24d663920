package main

import "github.com/KaramelBytes/dqcheck/cmd"

func main() {
	cmd.Execute()
}
