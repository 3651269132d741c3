package main

import "github.com/chikamichka/weatherlogd/cmd"

func main() {
	cmd.Execute()
}
