/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "filerelay/cmd"

func main() {
	cmd.Execute()
}
