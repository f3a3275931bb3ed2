package main

import "github.com/pders01/labtrail/cmd"

func main() {
	cmd.Execute()
}
