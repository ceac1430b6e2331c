// wapboxctl -- read-only CLI client for the wapbox admin endpoint.
package main

import "github.com/pruiz/wapbox/cmd/wapboxctl/commands"

func main() {
	commands.Execute()
}
