// Command cogsearchctl manages indexes, ingests documents and runs queries from a terminal.
package main

import "cogsearch-go/internal/cli"

func main() {
	cli.Execute()
}
