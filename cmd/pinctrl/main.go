package main

import "pinmux-go/cmd/pinctrl/cmd"

func main() {
	cmd.Execute()
}
