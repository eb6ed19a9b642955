// Package main provides the toast CLI for controlling a running toastd.
package main

func main() {
	Execute()
}
