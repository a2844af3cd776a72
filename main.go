package main

import "github.com/Alturino/marketclub/cmd"

func main() {
	cmd.Start()
}
