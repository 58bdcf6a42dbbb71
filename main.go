package main

import "github.com/sacraldj/ghost-sub001/cmd"

func main() {
	cmd.Execute()
}
