package main

import "github.com/dang1412/sui-chat/internal/cmd"

func main() {
	cmd.Execute()
}
