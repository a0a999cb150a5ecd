// Command auraring manages aura rings attached to tokens.
package main

import "github.com/mesh-intelligence/aurarings/internal/cli"

func main() {
	cli.Execute()
}
