package main

import "github.com/soocke/facegate-go/cmd"

func main() {
	cmd.Execute()
}
