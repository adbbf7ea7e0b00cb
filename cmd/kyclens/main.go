package main

import "github.com/MeKo-Tech/kyclens/cmd/kyclens/cmd"

func main() {
	cmd.Execute()
}
