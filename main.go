// bindwrap - binds a FastCGI listening socket on descriptor 0 and starts
// the worker on it.
package main

import (
	"os"

	"bindwrap/cmd"
)

func main() {
	// No signal context here: SIGTERM belongs to the supervisor, which
	// forwards it to the worker.
	os.Exit(cmd.Main(os.Args))
}
