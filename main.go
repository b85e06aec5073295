// ptc crawls a fixed set of tender portal pages politely and records the
// pages whose text matches the configured criteria.
package main

import "github.com/daWurzl/PTC/cmd"

func main() {
	cmd.Execute()
}
