package main

import "github.com/bEiGeOnE78/DIY-Photo-Tool/cmd"

func main() {
	cmd.Execute()
}
