package main

import "github.com/joaorura/etdxpdf/cmd"

func main() {
	cmd.Execute()
}
