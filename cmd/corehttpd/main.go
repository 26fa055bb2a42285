// Command corehttpd is an example host process for the embeddable HTTP
// core in pkg/corehttp.
package main

import "github.com/corehttp/corehttp/cmd/corehttpd/cmd"

func main() {
	cmd.Execute()
}
