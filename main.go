package main

import "github.com/vibast-solutions/ms-go-clover-pos/cmd"

func main() {
	cmd.Execute()
}
