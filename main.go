package main

import "github.com/vanshika/peerpay/cmd"

func main() {
	cmd.Execute()
}
