package main

import "github.com/frahmantamala/compliance-management/cmd"

func main() {
	cmd.Execute()
}
