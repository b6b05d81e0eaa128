package main

import "github.com/rl1809/shop-admin/internal/cmd"

func main() {
	cmd.Execute()
}
