// Command penenv-dist builds, publishes and installs penenv packages.
package main

import "github.com/penenv/distkit/cli"

func main() {
	cli.Execute()
}
