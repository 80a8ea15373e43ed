package main

import "reportsync/cmd/client/cmd"

func main() {
	cmd.Execute()
}
