package main

import "github.com/Alturino/mallofhookah/cmd"

func main() {
	cmd.Start()
}
