package main

import "github.com/ValentinKolb/dShare/cmd"

func main() {
	cmd.Execute()
}
