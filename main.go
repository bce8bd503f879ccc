package main

import "github.com/frahmantamala/work-permit/cmd"

func main() {
	cmd.Execute()
}
