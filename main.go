package main

import "github.com/juststeveking/iris/cmd"

func main() {
	cmd.Execute()
}
