package main

import "github.com/juagargi/scion-box/cmd/scion-ap/cmd"

func main() {
	cmd.Execute()
}
