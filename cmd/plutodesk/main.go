// Command plutodesk runs the PlutoDesk session core.
package main

import "github.com/plutodesk/plutodesk/cmd/plutodesk/cmd"

func main() {
	cmd.Execute()
}
