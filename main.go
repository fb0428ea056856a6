package main

import "example.com/cloudpanel/cmd"

func main() {
	cmd.Execute()
}
