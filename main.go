package main

import "github.com/deploymenttheory/go-sdboot/cmd"

func main() {
	cmd.Execute()
}
