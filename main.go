package main

import "github.com/andresmejia3/doorman/cmd"

func main() {
	cmd.Execute()
}
