// Command mcpgate runs an MCP server behind the introspection gate and
// offers client subcommands for the auth-agent authorization service.
package main

import "os"

// version can be set during build with -ldflags.
var version = "dev"

func main() {
	os.Exit(execute(newRootCmd(version), os.Args[1:]))
}
