package main

import "github.com/jcdickinson/astdocs/cmd"

func main() {
	cmd.Execute()
}
