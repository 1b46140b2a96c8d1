package main

import "github.com/danielpatrickdp/adaptive-context/internal/cmd"

func main() {
	cmd.Execute()
}
