// Command vtschooldata fetches, normalizes and serves Vermont school
// enrollment and directory data.
package main

import (
	"fmt"
	"os"
)

func main() {
	c := &cli{out: os.Stdout}
	err := newRootCmd(c).Execute()
	c.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
