// main.go

package main

import "github.com/CodeMonkeyCybersecurity/vmidctl/cmd"

func main() {
	cmd.Execute()
}
