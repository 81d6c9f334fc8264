package main

import "github.com/tandemlabs/tandem/internal/cmd"

func main() {
	cmd.Execute()
}
