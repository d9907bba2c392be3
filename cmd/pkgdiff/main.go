package main

import "github.com/aweris/pkgdiff/cmd/pkgdiff/cmd"

func main() {
	cmd.Execute()
}
