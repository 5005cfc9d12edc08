package main

import "github.com/apfsboot/apfs-checkpoint/cmd"

func main() {
	cmd.Execute()
}
